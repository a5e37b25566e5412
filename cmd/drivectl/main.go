// Command drivectl is an interactive operator console for the rover's
// control websocket.
package main

import (
	"flag"
	"log"
	"strconv"

	"github.com/abiosoft/ishell/v2"
)

var directions = []string{
	"forward", "backward", "left", "right",
	"forward_left", "forward_right", "backward_left", "backward_right",
	"pivot_left", "pivot_right", "stop",
}

func main() {
	url := flag.String("url", "ws://192.168.4.1:81/", "Rover control websocket URL")
	flag.Parse()

	shell := ishell.New()

	c, err := dial(*url, func(frame []byte) {
		shell.Printf("< %s\n", frame)
	})
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defer c.close()

	shell.Printf("Connected to %s\n", *url)
	shell.ShowPrompt(true)

	shell.AddCmd(&ishell.Cmd{
		Name:      "move",
		Help:      "move <direction>",
		Completer: func([]string) []string { return directions },
		Func: func(ctx *ishell.Context) {
			if len(ctx.Args) != 1 {
				ctx.Println(ctx.Cmd.HelpText())
				return
			}
			if err := c.move(ctx.Args[0]); err != nil {
				ctx.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "stop the rover",
		Func: func(ctx *ishell.Context) {
			if err := c.move("stop"); err != nil {
				ctx.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "speed",
		Help: "speed <0-255>",
		Func: func(ctx *ishell.Context) {
			if len(ctx.Args) != 1 {
				ctx.Println(ctx.Cmd.HelpText())
				return
			}
			v, err := strconv.Atoi(ctx.Args[0])
			if err != nil {
				ctx.Err(err)
				return
			}
			if err := c.speed(v); err != nil {
				ctx.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "custom",
		Help: "custom <left> <right>, signed wheel speeds",
		Func: func(ctx *ishell.Context) {
			if len(ctx.Args) != 2 {
				ctx.Println(ctx.Cmd.HelpText())
				return
			}
			left, err1 := strconv.Atoi(ctx.Args[0])
			right, err2 := strconv.Atoi(ctx.Args[1])
			if err1 != nil || err2 != nil {
				ctx.Println(ctx.Cmd.HelpText())
				return
			}
			if err := c.custom(left, right); err != nil {
				ctx.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "joy",
		Help: "joy <x> <y>, joystick position in [-1, 1]",
		Func: func(ctx *ishell.Context) {
			if len(ctx.Args) != 2 {
				ctx.Println(ctx.Cmd.HelpText())
				return
			}
			x, err1 := strconv.ParseFloat(ctx.Args[0], 64)
			y, err2 := strconv.ParseFloat(ctx.Args[1], 64)
			if err1 != nil || err2 != nil {
				ctx.Println(ctx.Cmd.HelpText())
				return
			}
			left, right := mixArcade(x, y)
			ctx.Printf("custom %d %d\n", left, right)
			if err := c.custom(left, right); err != nil {
				ctx.Err(err)
			}
		},
	})

	shell.Run()
}
