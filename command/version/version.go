// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package version

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/mitchellh/cli"

	"github.com/hashicorp/nanosock/command/flags"
	"github.com/hashicorp/nanosock/version"
)

const (
	PrettyFormat string = "pretty"
	JSONFormat   string = "json"
)

func New(ui cli.Ui) *cmd {
	c := &cmd{UI: ui}
	c.init()
	return c
}

type cmd struct {
	UI     cli.Ui
	flags  *flag.FlagSet
	format string
	help   string
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.StringVar(&c.format, "format", PrettyFormat,
		fmt.Sprintf("Output format {%s}", strings.Join(formats(), "|")))
	c.help = flags.Usage(help, c.flags)
}

type Info struct {
	Version    string
	Revision   string
	Prerelease string
	BuildDate  string
}

func formats() []string {
	return []string{PrettyFormat, JSONFormat}
}

func (c *cmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}
	if l := len(c.flags.Args()); l > 0 {
		c.UI.Error(fmt.Sprintf("Too many arguments (expected 0, got %d)", l))
		return 1
	}

	info := Info{
		Version:    version.Version,
		Revision:   version.GitCommit,
		Prerelease: version.VersionPrerelease,
		BuildDate:  version.BuildDate,
	}

	switch c.format {
	case JSONFormat:
		b, err := json.MarshalIndent(info, "", "    ")
		if err != nil {
			c.UI.Error(fmt.Sprintf("Failed to encode version information: %v", err))
			return 1
		}
		c.UI.Output(string(b))
	case PrettyFormat:
		c.UI.Output(fmt.Sprintf("nanosock %s", version.GetHumanVersion()))
		if info.Revision != "" {
			c.UI.Output(fmt.Sprintf("Revision %s", info.Revision))
		}
		c.UI.Output(fmt.Sprintf("Build Date %s", info.BuildDate))
	default:
		c.UI.Error(fmt.Sprintf("Invalid format %q, must be one of: %s", c.format, strings.Join(formats(), ", ")))
		return 1
	}
	return 0
}

func (c *cmd) Synopsis() string {
	return "Prints the nanosock version"
}

func (c *cmd) Help() string {
	return c.help
}

const help = `
Usage: nanosock version [options]

  Prints the version of this nanosock binary.
`
