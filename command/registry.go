// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"fmt"

	"github.com/mitchellh/cli"

	"github.com/hashicorp/nanosock/command/fetch"
	"github.com/hashicorp/nanosock/command/get"
	"github.com/hashicorp/nanosock/command/raw"
	"github.com/hashicorp/nanosock/command/version"
)

// RegisteredCommands returns a realized mapping of available CLI commands in
// a format that the CLI class can consume.
func RegisteredCommands(ui cli.Ui) map[string]cli.CommandFactory {
	return createCommands(ui,
		entry{"fetch", func(ui cli.Ui) (cli.Command, error) { return fetch.New(ui), nil }},
		entry{"get", func(ui cli.Ui) (cli.Command, error) { return get.New(ui), nil }},
		entry{"raw", func(ui cli.Ui) (cli.Command, error) { return raw.New(ui), nil }},
		entry{"version", func(ui cli.Ui) (cli.Command, error) { return version.New(ui), nil }},
	)
}

// factory is a function that returns a new instance of a CLI-sub command.
type factory func(cli.Ui) (cli.Command, error)

// entry is a struct that contains a command's name and a factory for that
// command.
type entry struct {
	name string
	fn   factory
}

func createCommands(ui cli.Ui, cmdEntries ...entry) map[string]cli.CommandFactory {
	m := make(map[string]cli.CommandFactory)
	for _, ent := range cmdEntries {
		thisFn := ent.fn
		if _, ok := m[ent.name]; ok {
			panic(fmt.Sprintf("duplicate command: %q", ent.name))
		}
		m[ent.name] = func() (cli.Command, error) {
			return thisFn(ui)
		}
	}
	return m
}
