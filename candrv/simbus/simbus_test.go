package simbus_test

import (
	"testing"

	"ecuos/candrv"
	"ecuos/candrv/simbus"
	"ecuos/errcode"
)

func TestTransmitBroadcastsToOtherStartedNodes(t *testing.T) {
	bus := simbus.NewBus()
	a := bus.NewNode(1)
	b := bus.NewNode(1)
	_ = a.SetMode(candrv.Started)
	_ = b.SetMode(candrv.Started)

	var got candrv.Frame
	received := make(chan struct{}, 1)
	b.OnReceive(func(f candrv.Frame) {
		got = f
		received <- struct{}{}
	})

	confirmed := make(chan int, 1)
	a.OnTxConfirm(func(mailbox int) { confirmed <- mailbox })

	if err := a.Transmit(0, candrv.Frame{ID: 0x100, DLC: 1, Data: [8]byte{9}}); err != nil {
		t.Fatalf("Transmit: %v", err)
	}

	select {
	case <-received:
	default:
		t.Fatal("peer never received the frame")
	}
	if got.ID != 0x100 || got.Data[0] != 9 {
		t.Fatalf("unexpected frame received: %+v", got)
	}
	select {
	case mb := <-confirmed:
		if mb != 0 {
			t.Fatalf("want mailbox 0 confirmed, got %d", mb)
		}
	default:
		t.Fatal("sender never got a tx confirmation")
	}
}

func TestTransmitRefusesWhenNotStarted(t *testing.T) {
	bus := simbus.NewBus()
	a := bus.NewNode(1)
	if err := a.Transmit(0, candrv.Frame{ID: 1}); errcode.Of(err) != errcode.NotOK {
		t.Fatalf("want NotOK, got %v", err)
	}
}

func TestTransmitRejectsOutOfRangeMailbox(t *testing.T) {
	bus := simbus.NewBus()
	a := bus.NewNode(1)
	_ = a.SetMode(candrv.Started)
	if err := a.Transmit(5, candrv.Frame{ID: 1}); errcode.Of(err) != errcode.InvalidID {
		t.Fatalf("want InvalidID, got %v", err)
	}
}

func TestStoppedPeerDoesNotReceive(t *testing.T) {
	bus := simbus.NewBus()
	a := bus.NewNode(1)
	b := bus.NewNode(1)
	_ = a.SetMode(candrv.Started)
	// b stays Stopped.

	called := false
	b.OnReceive(func(candrv.Frame) { called = true })
	if err := a.Transmit(0, candrv.Frame{ID: 1}); err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	if called {
		t.Fatal("a stopped node must not receive")
	}
}

func TestDeliveredFrameIsACopyNotTheSenderSlice(t *testing.T) {
	bus := simbus.NewBus()
	a := bus.NewNode(1)
	b := bus.NewNode(1)
	_ = a.SetMode(candrv.Started)
	_ = b.SetMode(candrv.Started)

	frame := candrv.Frame{ID: 1, DLC: 1, Data: [8]byte{1}}
	var got candrv.Frame
	b.OnReceive(func(f candrv.Frame) { got = f })
	_ = a.Transmit(0, frame)

	frame.Data[0] = 0xFF
	if got.Data[0] != 1 {
		t.Fatalf("received frame aliased the sender's frame: got %v", got)
	}
}
