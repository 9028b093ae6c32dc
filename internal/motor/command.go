// Package motor forwards stage and zoom commands to a device's motor controller
// over TCP.
package motor

import (
	"fmt"
	"strings"
)

type CommandName string

const (
	MoveX       CommandName = "move_x"
	MoveY       CommandName = "move_y"
	ZoomInFine  CommandName = "zoom_in_fine"
	ZoomOutFine CommandName = "zoom_out_fine"
)

const DefaultSteps = 1

var commandNames = []CommandName{MoveX, MoveY, ZoomInFine, ZoomOutFine}

func (c CommandName) Valid() bool {
	for _, name := range commandNames {
		if c == name {
			return true
		}
	}
	return false
}

// Command is the wire format the controller expects.
type Command struct {
	Command CommandName `json:"command"`
	Amount  int         `json:"amount"`
}

// NewCommand builds a command, defaulting a missing amount to one step.
func NewCommand(name CommandName, amount *int) (Command, error) {
	cmd := Command{Command: name, Amount: DefaultSteps}
	if amount != nil {
		cmd.Amount = *amount
	}
	return cmd, cmd.Validate()
}

func (c Command) Validate() error {
	if !c.Command.Valid() {
		names := make([]string, len(commandNames))
		for i, name := range commandNames {
			names[i] = string(name)
		}
		return fmt.Errorf("invalid command, must be one of: %s", strings.Join(names, ", "))
	}
	if c.Amount < 1 {
		return fmt.Errorf("amount must be greater than 0")
	}
	return nil
}
