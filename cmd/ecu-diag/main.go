// Command ecu-diag builds the same VCU stack as ecu-sim, then mirrors its
// diagnostics bus to the console instead of running it silently, the way
// the teacher's cmd/boardtest exercises a HAL instance and prints every
// retained topic it cares about rather than connecting to one already
// running elsewhere.
package main

import (
	"fmt"
	"time"

	"ecuos/arch"
	"ecuos/bus"
	"ecuos/candrv"
	"ecuos/candrv/simbus"
	"ecuos/config"
	"ecuos/diag"
	"ecuos/iohwab/simio"
)

func main() {
	port := arch.NewSim()

	can := simbus.NewBus()
	ecuNode := can.NewNode(1)
	engineNode := can.NewNode(1)
	go driveEngineStatus(engineNode)

	hal := simio.New()
	hal.SetPedalPercent(25)
	hal.SetBrakePressed(false)
	hal.SetGear(3, true) // Drive
	hal.SetDriveMode(1)  // NORMAL

	diagBus := bus.NewBus(4)
	diagConn := diagBus.NewConnection("ecu-diag")

	sys, err := config.Build(port, ecuNode, hal, diagConn)
	if err != nil {
		fmt.Println("ecu-diag: config.Build failed:", err)
		return
	}
	if err := config.StartCommunication(sys); err != nil {
		fmt.Println("ecu-diag: StartCommunication failed:", err)
		return
	}

	sub := diag.Subscribe(diagConn)
	defer diagConn.Unsubscribe(sub)
	go printTopics(sub)

	fmt.Println("ecu-diag: starting kernel")
	sys.Kernel.Start()
}

// printTopics drains the diagnostics subscription and prints every message
// received, matching the teacher's out.println console mirror.
func printTopics(sub *bus.Subscription) {
	for m := range sub.Channel() {
		fmt.Printf("[%v] %v\n", m.Topic, m.Payload)
	}
}

// driveEngineStatus stands in for a second ECU on the bus, publishing a
// plausible Engine_Status frame (CAN id 0x200) once a second.
func driveEngineStatus(node *simbus.Node) {
	_ = node.SetMode(candrv.Started)
	var rpm uint16 = 1500
	for {
		time.Sleep(1 * time.Second)
		rpm += 200
		if rpm > 6000 {
			rpm = 1500
		}
		frame := candrv.Frame{ID: 0x200, DLC: 2}
		frame.Data[0] = byte(rpm >> 8)
		frame.Data[1] = byte(rpm)
		_ = node.Transmit(0, frame)
	}
}
