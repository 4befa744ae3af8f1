package main

// GlobalFlags holds the persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	Debug      bool
}

// RunFlags holds flags for the run command.
type RunFlags struct {
	Phase string
	Unit  string
}

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	Listen   string
	BasePath string
	NoStart  bool
}
