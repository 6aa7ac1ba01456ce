package gearselector_test

import (
	"testing"

	"ecuos/com"
	"ecuos/iohwab/simio"
	"ecuos/rte"
	"ecuos/swc/gearselector"
)

func buildTest(t *testing.T) (*gearselector.SWC, *simio.Sim, *com.Com, *[]byte) {
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
	r := rte.New(rte.Config{Com: c, GearSignal: 0, VCUCommandIPdu: 0})
	hal := simio.New()
	return gearselector.New(hal, r, nil), hal, c, &sent
}

func TestRunDoesNothingUntilFirstGoodReading(t *testing.T) {
	swc, hal, c, sent := buildTest(t)
	hal.SetGear(2, false) // invalid reading, no good value yet
	swc.Run()
	_ = c.TriggerIPduSend(0)
	if (*sent)[0] != 0 {
		t.Fatalf("want untouched shadow buffer byte before any good reading, got %d", (*sent)[0])
	}
}

func TestRunRetainsLastGoodAcrossInvalidReading(t *testing.T) {
	swc, hal, c, sent := buildTest(t)
	hal.SetGear(3, true) // Drive
	swc.Run()

	hal.SetGear(9, false) // transient invalid reading
	swc.Run()
	if err := c.TriggerIPduSend(0); err != nil {
		t.Fatalf("TriggerIPduSend: %v", err)
	}
	if (*sent)[0] != 3 {
		t.Fatalf("want last good gear 3 retained, got %d", (*sent)[0])
	}
}

func TestRunAdoptsNewGoodReading(t *testing.T) {
	swc, hal, c, sent := buildTest(t)
	hal.SetGear(3, true)
	swc.Run()
	hal.SetGear(1, true) // Reverse
	swc.Run()
	if err := c.TriggerIPduSend(0); err != nil {
		t.Fatalf("TriggerIPduSend: %v", err)
	}
	if (*sent)[0] != 1 {
		t.Fatalf("want updated gear 1, got %d", (*sent)[0])
	}
}
