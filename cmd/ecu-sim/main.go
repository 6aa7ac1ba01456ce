// Command ecu-sim runs the VCU stack against the host-simulated
// architecture port: a goroutine-baton scheduler standing in for the real
// Cortex-M3 target, an in-memory CAN loopback bus standing in for the
// MCP2515 driver, and an in-memory HAL source a caller can drive by hand.
// This is the host-testable counterpart to a real target's main.c.
package main

import (
	"fmt"
	"time"

	"ecuos/arch"
	"ecuos/bus"
	"ecuos/candrv"
	"ecuos/candrv/simbus"
	"ecuos/config"
	"ecuos/iohwab/simio"
)

func main() {
	port := arch.NewSim()

	can := simbus.NewBus()
	ecuNode := can.NewNode(1)
	// A second node plays the engine controller, echoing a plausible
	// engine speed back on Engine_Status so ReadEngineSpeed has something
	// to report.
	engineNode := can.NewNode(1)
	go driveEngineStatus(engineNode)

	hal := simio.New()
	hal.SetPedalPercent(0)
	hal.SetBrakePressed(false)
	hal.SetGear(0, true) // Park
	hal.SetDriveMode(0)  // ECO

	diagBus := bus.NewBus(4)
	diagConn := diagBus.NewConnection("ecu-sim")

	sys, err := config.Build(port, ecuNode, hal, diagConn)
	if err != nil {
		fmt.Println("ecu-sim: config.Build failed:", err)
		return
	}
	if err := config.StartCommunication(sys); err != nil {
		fmt.Println("ecu-sim: StartCommunication failed:", err)
		return
	}

	fmt.Println("ecu-sim: starting kernel")
	sys.Kernel.Start()
}

// driveEngineStatus stands in for a second ECU on the bus, publishing a
// plausible Engine_Status frame (CAN id 0x200) once a second so this
// simulation's RTE.ReadEngineSpeed has live data to report.
func driveEngineStatus(node *simbus.Node) {
	_ = node.SetMode(candrv.Started)
	var rpm uint16 = 800
	for {
		time.Sleep(1 * time.Second)
		rpm += 50
		if rpm > 6000 {
			rpm = 800
		}
		frame := candrv.Frame{ID: 0x200, DLC: 2}
		frame.Data[0] = byte(rpm >> 8)
		frame.Data[1] = byte(rpm)
		_ = node.Transmit(0, frame)
	}
}
