// Command sagactl drives the booking service API from the shell.
package main

import (
	"time"

	"github.com/alecthomas/kong"
)

type Globals struct {
	URL     string        `help:"Booking service base URL." default:"http://localhost:8001" env:"SAGACTL_URL"`
	Timeout time.Duration `help:"Request timeout." default:"5m"`
}

type CLI struct {
	Globals

	Start  StartCmd  `cmd:"" help:"Start a booking saga from a JSON file."`
	Status StatusCmd `cmd:"" help:"Show the state of a saga."`
	Logs   LogsCmd   `cmd:"" help:"Show the audit trail of a saga."`
}

type StartCmd struct {
	File          string `help:"Booking request file." short:"f" required:"" type:"existingfile"`
	CorrelationID string `help:"Correlation id to use, for idempotent retries." name:"correlation-id"`
}

func (c *StartCmd) Run(g *Globals, out *output) error {
	body, err := readBookingFile(c.File, c.CorrelationID)
	if err != nil {
		return err
	}
	return newClient(g).do("POST", "/api/saga/start-booking", body, out)
}

type StatusCmd struct {
	ID string `arg:"" help:"Saga correlation id."`
}

func (c *StatusCmd) Run(g *Globals, out *output) error {
	return newClient(g).do("GET", "/api/saga/status/"+c.ID, nil, out)
}

type LogsCmd struct {
	ID             string `arg:"" help:"Saga correlation id."`
	NoCompensation bool   `help:"Hide compensation entries." name:"no-compensation"`
}

func (c *LogsCmd) Run(g *Globals, out *output) error {
	path := "/api/saga/logs/" + c.ID
	if !c.NoCompensation {
		path += "?include_compensation=true"
	}
	return newClient(g).do("GET", path, nil, out)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("sagactl"),
		kong.Description("Start and inspect flight booking sagas."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals, stdout())
	ctx.FatalIfErrorf(err)
}
