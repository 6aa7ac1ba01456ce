package cmdcomposer_test

import (
	"testing"

	"ecuos/com"
	"ecuos/errcode"
	"ecuos/rte"
	"ecuos/swc/cmdcomposer"
)

func buildTest(t *testing.T, transmit func(int, []byte) error) *com.Com {
	t.Helper()
	c, err := com.Build(com.Config{
		TxIPDUs: []com.IPDUConfig{{Name: "p", Length: 1}},
		Signals: []com.SignalConfig{{IPDU: 0, Direction: com.Tx, ByteOffset: 0, BitLength: 4}},
		TransmitIPdu: transmit,
	})
	if err != nil {
		t.Fatalf("com.Build: %v", err)
	}
	return c
}

func TestRunIncrementsAliveAndWrapsAtNibble(t *testing.T) {
	var sent []byte
	c := buildTest(t, func(_ int, payload []byte) error {
		sent = append([]byte(nil), payload...)
		return nil
	})
	r := rte.New(rte.Config{Com: c, AliveSignal: 0, VCUCommandIPdu: 0})
	swc := cmdcomposer.New(r, nil)

	for i := 0; i < 16; i++ {
		swc.Run()
		if sent[0] != byte(i&0x0F) {
			t.Fatalf("iteration %d: want alive %d, got %d", i, i&0x0F, sent[0])
		}
	}
	// 17th call wraps back to 0.
	swc.Run()
	if sent[0] != 0 {
		t.Fatalf("want alive to wrap to 0, got %d", sent[0])
	}
}

func TestRunSurvivesTriggerFailureWithoutPanicking(t *testing.T) {
	c, err := com.Build(com.Config{
		TxIPDUs: []com.IPDUConfig{{Name: "p", Length: 1}},
		Signals: []com.SignalConfig{{IPDU: 0, Direction: com.Tx, ByteOffset: 0, BitLength: 4}},
		// No TransmitIPdu hook: TriggerIPduSend always fails NotOK.
	})
	if err != nil {
		t.Fatalf("com.Build: %v", err)
	}
	r := rte.New(rte.Config{Com: c, AliveSignal: 0, VCUCommandIPdu: 0})
	swc := cmdcomposer.New(r, nil)
	swc.Run()
	if err := r.TriggerVCUCommand(); errcode.Of(err) != errcode.NotOK {
		t.Fatalf("want NotOK confirming the hookless path, got %v", err)
	}
}
