package safetymanager_test

import (
	"testing"

	"ecuos/bus"
	"ecuos/com"
	"ecuos/iohwab/simio"
	"ecuos/rte"
	"ecuos/swc/safetymanager"
)

func buildTest(t *testing.T) (*safetymanager.SWC, *simio.Sim, *com.Com, *bus.Subscription) {
	t.Helper()
	c, err := com.Build(com.Config{
		RxIPDUs: []com.IPDUConfig{{Name: "Engine_Status", Length: 2}},
		Signals: []com.SignalConfig{{IPDU: 0, Direction: com.Rx, ByteOffset: 0, BitLength: 16}},
	})
	if err != nil {
		t.Fatalf("com.Build: %v", err)
	}
	r := rte.New(rte.Config{Com: c, EngineSpeedSignal: 0})
	hal := simio.New()

	b := bus.NewBus(4)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(bus.T("swc", "safetymanager", "status"))

	return safetymanager.New(hal, r, conn), hal, c, sub
}

func readStatus(t *testing.T, sub *bus.Subscription) string {
	t.Helper()
	select {
	case m := <-sub.Channel():
		s, ok := m.Payload.(string)
		if !ok {
			t.Fatalf("want string payload, got %T", m.Payload)
		}
		return s
	default:
		t.Fatal("no status published")
		return ""
	}
}

// setEngineSpeed delivers a raw Rx indication straight into com, the way
// PduR would after routing a received Engine_Status frame.
func setEngineSpeed(c *com.Com, rpm uint16) {
	c.ReceiveIndication(0, []byte{byte(rpm >> 8), byte(rpm)})
}

func TestRunReportsUnknownWithoutAnyReadings(t *testing.T) {
	swc, _, _, sub := buildTest(t)
	swc.Run()
	if got := readStatus(t, sub); got != "unknown" {
		t.Fatalf("want unknown, got %s", got)
	}
}

func TestRunReportsOKForPlausibleCombination(t *testing.T) {
	swc, hal, c, sub := buildTest(t)
	hal.SetBrakePressed(true)
	hal.SetGear(3, true) // Drive
	setEngineSpeed(c, 2000)
	swc.Run()
	if got := readStatus(t, sub); got != "ok" {
		t.Fatalf("want ok, got %s", got)
	}
}

func TestRunFlagsImplausibleBrakeGearRpmCombination(t *testing.T) {
	swc, hal, c, sub := buildTest(t)
	hal.SetBrakePressed(true)
	hal.SetGear(3, true) // Drive
	setEngineSpeed(c, 5000)
	swc.Run()
	if got := readStatus(t, sub); got != "implausible" {
		t.Fatalf("want implausible, got %s", got)
	}
}

func TestRunReportsOKWhenNotInDriveEvenAtHighRPM(t *testing.T) {
	swc, hal, c, sub := buildTest(t)
	hal.SetBrakePressed(true)
	hal.SetGear(0, true) // Park
	setEngineSpeed(c, 5000)
	swc.Run()
	if got := readStatus(t, sub); got != "ok" {
		t.Fatalf("want ok, got %s", got)
	}
}
