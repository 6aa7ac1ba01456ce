// Package config holds the VCU's static configuration tables and the
// single composition-root Build that wires kernel/canif/pdur/com/rte into
// a running system, grounded in original_source/cfg/communication/*_Cfg.c
// (CanIf_Cfg.c, Com_Cfg.c, PduR_Cfg.c) and app/tasks/Task_A.c, Task_B.c's
// 10ms/100ms task split.
package config

import (
	"time"

	"ecuos/arch"
	"ecuos/bus"
	"ecuos/candrv"
	"ecuos/canif"
	"ecuos/com"
	"ecuos/diag"
	"ecuos/iohwab"
	"ecuos/kernel"
	"ecuos/pdur"
	"ecuos/rte"
	"ecuos/swc/brakeacq"
	"ecuos/swc/cmdcomposer"
	"ecuos/swc/drivemodemgr"
	"ecuos/swc/gearselector"
	"ecuos/swc/pedalacq"
	"ecuos/swc/safetymanager"
	"ecuos/x/timex"
)

// Task ids, matching Task_A.c's 10ms group (acquisition, then safety, then
// composition) and Task_B.c's 100ms group (drive-mode management).
const (
	TaskPedalAcq kernel.TaskID = iota
	TaskBrakeAcq
	TaskGearSelector
	TaskSafetyManager
	TaskCmdComposer
	TaskDriveModeMgr
)

// The single system counter and the six alarms it drives.
const (
	CounterSystem kernel.CounterID = 0
)

const (
	Alarm10msPedal kernel.AlarmID = iota
	Alarm10msBrake
	Alarm10msGear
	Alarm10msSafety
	Alarm10msCmd
	Alarm100msDriveMode
)

// Tick period: 1ms (1kHz), per spec §6.
const TickPeriod = 1 * time.Millisecond

var (
	ticks10ms  = timex.TicksForDuration(10*time.Millisecond, TickPeriod)
	ticks100ms = timex.TicksForDuration(100*time.Millisecond, TickPeriod)

	// counterModulus must strictly exceed the longest alarm period bound
	// to SystemCounter (ticks100ms): SetRelAlarm rejects offset >= Max, and
	// the 100ms cyclic alarm is armed with offset == cycle == ticks100ms.
	// A full second's worth of ticks gives every configured period (10ms,
	// 100ms) headroom to both arm and reload without ever touching Max.
	counterModulus = timex.TicksForDuration(1*time.Second, TickPeriod)
)

// CanIf controller/PDU ids, matching CanIf_Cfg.c's RoutingTable.
const (
	CanIfController0 = 0

	CanIfTxVCUCommand    = 0 // CanId 0x123
	CanIfRxEngineStatus  = 0 // CanId 0x200
	canIDVCUCommand      = 0x123
	canIDEngineStatus    = 0x200
)

// PduR-level ids: COM's I-PDU ids double as PduR's COM-side route ids,
// since each has exactly one COM I-PDU per direction, per Com_Cfg.c.
const (
	ComTxVCUCommand   = 0
	ComRxEngineStatus = 0
)

// Com signal ids, matching Com_Cfg.c's Com_SignalCfg table. EngineSpeedRpm
// is widened from the original's 8-bit field to 16-bit big-endian, per the
// resolved Com_ReceiveSignal open question.
const (
	sigThrottleReqPct = 0
	sigGearSel        = 1
	sigDriveMode      = 2
	sigBrakeActive    = 3
	sigAlive          = 4
	sigEngineSpeedRpm = 5
)

// System bundles every built layer plus the six SWC runnables, ready for a
// caller to drive kernel.Start().
type System struct {
	Kernel *kernel.Kernel
	CanIf  *canif.CanIf
	PduR   *pdur.PduR
	Com    *com.Com
	Rte    *rte.Rte

	PedalAcq      *pedalacq.SWC
	BrakeAcq      *brakeacq.SWC
	GearSelector  *gearselector.SWC
	DriveModeMgr  *drivemodemgr.SWC
	CmdComposer   *cmdcomposer.SWC
	SafetyManager *safetymanager.SWC
}

// Build wires the complete VCU stack: COM's signal engine, PduR's static
// routing tables, CanIf's controller/PDU matrix, the RTE adapter, the six
// software components, and the kernel's task/counter/alarm tables. drv is
// the CAN driver (candrv/simbus.Node in tests and cmd/ecu-sim's default
// build); diagBus may be nil to disable diagnostics publishing.
func Build(port arch.Port, drv candrv.Driver, src iohwab.Source, diagBus *bus.Connection) (*System, error) {
	var (
		canIfLayer *canif.CanIf
		pduRLayer  *pdur.PduR
		comLayer   *com.Com
	)

	pduRCfg := pdur.Config{
		ComTxToCanIfTx: []pdur.Route{
			{Source: ComTxVCUCommand, Dest: CanIfTxVCUCommand},
		},
		CanIfRxToComRx: []pdur.Route{
			{Source: CanIfRxEngineStatus, Dest: ComRxEngineStatus},
		},
		CanIfTxConfirmToCom: []pdur.Route{
			{Source: CanIfTxVCUCommand, Dest: ComTxVCUCommand},
		},
		TransmitToCanIf: func(canIfTxPduID int, payload []byte) error {
			return canIfLayer.Transmit(canIfTxPduID, payload)
		},
		IndicateToCom: func(comRxPduID int, data []byte) {
			comLayer.ReceiveIndication(comRxPduID, data)
		},
		ConfirmToCom: func(comTxPduID int) {
			comLayer.TxConfirmation(comTxPduID)
		},
	}
	pduRLayer, err := pdur.Build(pduRCfg)
	if err != nil {
		return nil, err
	}

	canIfCfg := canif.Config{
		Controllers: []canif.ControllerConfig{
			{Name: "CAN0", Driver: drv},
		},
		TxPDUs: []canif.TxPDUConfig{
			{Name: "VCU_Command", Controller: CanIfController0, Mailbox: 0, CanID: canIDVCUCommand},
		},
		RxPDUs: []canif.RxPDUConfig{
			{Name: "Engine_Status", Controller: CanIfController0, CanID: canIDEngineStatus, Length: 2},
		},
		RxIndication: func(rxPduID int, data []byte) {
			pduRLayer.IndicateCanIf(rxPduID, data)
		},
		TxConfirmation: func(txPduID int) {
			pduRLayer.ConfirmCanIf(txPduID)
		},
	}
	if diagBus != nil {
		canIfCfg.OnControllerModeChange, canIfCfg.OnPduModeChange = diag.CanIfHooks(diagBus)
	}
	canIfLayer, err = canif.Build(canIfCfg)
	if err != nil {
		return nil, err
	}

	comCfg := com.Config{
		TxIPDUs: []com.IPDUConfig{
			{Name: "VCU_Command", Length: 5},
		},
		RxIPDUs: []com.IPDUConfig{
			{Name: "Engine_Status", Length: 2},
		},
		Signals: []com.SignalConfig{
			{Name: "VCU_ThrottleReq_pct", IPDU: ComTxVCUCommand, Direction: com.Tx, ByteOffset: 0, BitOffset: 0, BitLength: 8},
			{Name: "VCU_GearSel", IPDU: ComTxVCUCommand, Direction: com.Tx, ByteOffset: 1, BitOffset: 0, BitLength: 8},
			{Name: "VCU_DriveMode", IPDU: ComTxVCUCommand, Direction: com.Tx, ByteOffset: 2, BitOffset: 0, BitLength: 8},
			{Name: "VCU_BrakeActive", IPDU: ComTxVCUCommand, Direction: com.Tx, ByteOffset: 3, BitOffset: 0, BitLength: 8},
			{Name: "VCU_Alive", IPDU: ComTxVCUCommand, Direction: com.Tx, ByteOffset: 4, BitOffset: 0, BitLength: 4},
			{Name: "EngineSpeedRpm", IPDU: ComRxEngineStatus, Direction: com.Rx, ByteOffset: 0, BitOffset: 0, BitLength: 16},
		},
		TransmitIPdu: func(ipduID int, payload []byte) error {
			return pduRLayer.TransmitCom(ipduID, payload)
		},
	}
	if diagBus != nil {
		comCfg.OnSignalSent = diag.ComSignalHook(diagBus)
	}
	comLayer, err = com.Build(comCfg)
	if err != nil {
		return nil, err
	}

	rteLayer := rte.New(rte.Config{
		Com:               comLayer,
		ThrottleSignal:    sigThrottleReqPct,
		GearSignal:        sigGearSel,
		ModeSignal:        sigDriveMode,
		BrakeSignal:       sigBrakeActive,
		AliveSignal:       sigAlive,
		VCUCommandIPdu:    ComTxVCUCommand,
		EngineSpeedSignal: sigEngineSpeedRpm,
	})

	pedal := pedalacq.New(src, rteLayer, diagBus)
	brake := brakeacq.New(src, rteLayer, diagBus)
	gear := gearselector.New(src, rteLayer, diagBus)
	mode := drivemodemgr.New(src, rteLayer, diagBus)
	cmd := cmdcomposer.New(rteLayer, diagBus)
	safety := safetymanager.New(src, rteLayer, diagBus)

	kcfg := kernel.Config{
		TickPeriod:    TickPeriod,
		AutostartTask: TaskPedalAcq,
		Tasks: []kernel.TaskConfig{
			TaskPedalAcq:      {Name: "PedalAcq", Entry: pedal.Run, ActivationLimit: 1, StackSize: 512},
			TaskBrakeAcq:      {Name: "BrakeAcq", Entry: brake.Run, ActivationLimit: 1, StackSize: 512},
			TaskGearSelector:  {Name: "GearSelector", Entry: gear.Run, ActivationLimit: 1, StackSize: 512},
			TaskCmdComposer:   {Name: "CmdComposer", Entry: cmd.Run, ActivationLimit: 1, StackSize: 512},
			TaskSafetyManager: {Name: "SafetyManager", Entry: safety.Run, ActivationLimit: 1, StackSize: 512},
			TaskDriveModeMgr:  {Name: "DriveModeMgr", Entry: mode.Run, ActivationLimit: 1, StackSize: 512},
		},
		Counters: []kernel.CounterConfig{
			CounterSystem: {Name: "SystemCounter", Max: counterModulus, TicksPerBase: 1, MinCycle: 1},
		},
		Alarms: []kernel.AlarmConfig{
			Alarm10msPedal:      {Name: "Alarm_PedalAcq", Counter: CounterSystem, Action: kernel.ActivateTask{Task: TaskPedalAcq}},
			Alarm10msBrake:      {Name: "Alarm_BrakeAcq", Counter: CounterSystem, Action: kernel.ActivateTask{Task: TaskBrakeAcq}},
			Alarm10msGear:       {Name: "Alarm_GearSelector", Counter: CounterSystem, Action: kernel.ActivateTask{Task: TaskGearSelector}},
			Alarm10msCmd:        {Name: "Alarm_CmdComposer", Counter: CounterSystem, Action: kernel.ActivateTask{Task: TaskCmdComposer}},
			Alarm10msSafety:     {Name: "Alarm_SafetyManager", Counter: CounterSystem, Action: kernel.ActivateTask{Task: TaskSafetyManager}},
			Alarm100msDriveMode: {Name: "Alarm_DriveModeMgr", Counter: CounterSystem, Action: kernel.ActivateTask{Task: TaskDriveModeMgr}},
		},
	}
	if diagBus != nil {
		kcfg.Hooks = diag.KernelHooks(diagBus)
	}

	k, err := kernel.Build(port, kcfg)
	if err != nil {
		return nil, err
	}
	// Alarms are armed after Build returns a live kernel: SetRelAlarm needs
	// the kernel instance itself, which Config predates.
	if err := armAlarms(k); err != nil {
		return nil, err
	}

	return &System{
		Kernel:        k,
		CanIf:         canIfLayer,
		PduR:          pduRLayer,
		Com:           comLayer,
		Rte:           rteLayer,
		PedalAcq:      pedal,
		BrakeAcq:      brake,
		GearSelector:  gear,
		DriveModeMgr:  mode,
		CmdComposer:   cmd,
		SafetyManager: safety,
	}, nil
}

// armAlarms arms every configured alarm to its period, ascending AlarmID
// order within the same tick so CmdComposer always observes the other
// acquisition tasks' writes first (spec §5's "alarm actions fire in
// alarm-id order" combined with cooperative run-to-completion scheduling).
// Each SetRelAlarm is expected to succeed against SystemCounter's static
// configuration above; a failure here means that configuration is broken,
// so it is reported rather than swallowed.
func armAlarms(k *kernel.Kernel) error {
	alarms := []struct {
		id     kernel.AlarmID
		period uint64
	}{
		{Alarm10msPedal, ticks10ms},
		{Alarm10msBrake, ticks10ms},
		{Alarm10msGear, ticks10ms},
		{Alarm10msCmd, ticks10ms},
		{Alarm10msSafety, ticks10ms},
		{Alarm100msDriveMode, ticks100ms},
	}
	for _, a := range alarms {
		if err := k.SetRelAlarm(a.id, a.period, a.period); err != nil {
			return err
		}
	}
	return nil
}

// StartCommunication brings CanIf's controller and every configured PDU
// online. CanIf.Build leaves everything Offline (mirroring the real
// CanIf_Init default), so a caller must do this once before the first
// scheduler tick if it wants VCU_Command to actually reach the wire.
func StartCommunication(sys *System) error {
	if err := sys.CanIf.SetControllerMode(CanIfController0, candrv.Started); err != nil {
		return err
	}
	if err := sys.CanIf.SetTxPduMode(CanIfTxVCUCommand, canif.Online); err != nil {
		return err
	}
	if err := sys.CanIf.SetRxPduMode(CanIfRxEngineStatus, canif.Online); err != nil {
		return err
	}
	return nil
}
