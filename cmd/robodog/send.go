package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gwillem/robodog/pkg/control"
	"github.com/gwillem/robodog/pkg/link"
)

type SendCommand struct {
	URL      string        `long:"url" default:"ws://localhost:8080/ws/command" description:"Websocket endpoint of the robot"`
	Wait     time.Duration `long:"wait" default:"2s" description:"How long to print acknowledgments after sending"`
	Interval time.Duration `long:"interval" default:"300ms" description:"Pause between commands; the robot keeps only the latest pending one"`

	Args struct {
		Commands string `positional-arg-name:"commands" description:"Command letters, e.g. FFLS"`
	} `positional-args:"yes" required:"yes"`
}

func (c *SendCommand) Execute(args []string) error {
	cmds := c.Args.Commands
	for _, w := range commandWarnings(cmds) {
		fmt.Println(dimStyle.Render("warning: " + w))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	client, err := link.Dial(ctx, c.URL)
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	for i := 0; i < len(cmds); i++ {
		if i > 0 {
			if err := c.drain(client, c.Interval); err != nil {
				return err
			}
		}
		if err := client.Send(cmds[i : i+1]); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
	return c.drain(client, c.Wait)
}

// commandWarnings describes the bytes of cmds the robot will not act on.
// Commands are case-sensitive, so lowercase letters are dropped by the link.
func commandWarnings(cmds string) []string {
	var out []string
	for i := 0; i < len(cmds); i++ {
		b := cmds[i]
		switch _, known := control.CommandName(b); {
		case known:
		case !link.Accept(b):
			out = append(out, fmt.Sprintf("%q is dropped by the robot (commands are uppercase)", b))
		default:
			out = append(out, fmt.Sprintf("%q is not a known command", b))
		}
	}
	return out
}

// drain prints acknowledgments for d.
func (c *SendCommand) drain(client *link.Client, d time.Duration) error {
	deadline := time.After(d)
	for {
		select {
		case ack, ok := <-client.Acks():
			if !ok {
				return nil
			}
			fmt.Println(ack)
		case err := <-client.Err():
			return err
		case <-deadline:
			return nil
		}
	}
}
