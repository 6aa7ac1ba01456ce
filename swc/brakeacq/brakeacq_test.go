package brakeacq_test

import (
	"testing"

	"ecuos/com"
	"ecuos/iohwab/simio"
	"ecuos/rte"
	"ecuos/swc/brakeacq"
)

func buildTest(t *testing.T) (*brakeacq.SWC, *simio.Sim, *com.Com, *[]byte) {
	t.Helper()
	var sent []byte
	c, err := com.Build(com.Config{
		TxIPDUs: []com.IPDUConfig{{Name: "p", Length: 1}},
		Signals: []com.SignalConfig{{IPDU: 0, Direction: com.Tx, ByteOffset: 0, BitLength: 8}},
		TransmitIPdu: func(_ int, payload []byte) error {
			sent = append([]byte(nil), payload...)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("com.Build: %v", err)
	}
	r := rte.New(rte.Config{Com: c, BrakeSignal: 0, VCUCommandIPdu: 0})
	hal := simio.New()
	return brakeacq.New(hal, r, nil), hal, c, &sent
}

func TestRunSkipsWhenSensorNotOK(t *testing.T) {
	swc, _, c, sent := buildTest(t)
	swc.Run()
	_ = c.TriggerIPduSend(0)
	if (*sent)[0] != 0 {
		t.Fatalf("want untouched shadow buffer byte, got %d", (*sent)[0])
	}
}

func TestRunForwardsBrakePressedAsOne(t *testing.T) {
	swc, hal, c, sent := buildTest(t)
	hal.SetBrakePressed(true)
	swc.Run()
	if err := c.TriggerIPduSend(0); err != nil {
		t.Fatalf("TriggerIPduSend: %v", err)
	}
	if (*sent)[0] != 1 {
		t.Fatalf("want 1, got %d", (*sent)[0])
	}
}

func TestRunForwardsBrakeReleasedAsZero(t *testing.T) {
	swc, hal, c, sent := buildTest(t)
	hal.SetBrakePressed(false)
	swc.Run()
	if err := c.TriggerIPduSend(0); err != nil {
		t.Fatalf("TriggerIPduSend: %v", err)
	}
	if (*sent)[0] != 0 {
		t.Fatalf("want 0, got %d", (*sent)[0])
	}
}
