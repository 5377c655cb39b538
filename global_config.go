package niawave

import (
	"log"
	"os"
	"time"
)

// Portnumbers structs can contain all TCP port numbers used by niawave.
type Portnumbers struct {
	Status    int
	Frames    int
	WebSocket int
}

// Ports globally holds all TCP port numbers used by niawave.
var Ports Portnumbers

// SetPortnumbers assigns all ports as consecutive numbers starting at base.
func SetPortnumbers(base int) {
	Ports.Status = base
	Ports.Frames = base + 1
	Ports.WebSocket = base + 2
}

// BuildInfo can contain compile-time information about the build
type BuildInfo struct {
	Version string
	Githash string
	Gitdate string
	Date    string
	Summary string
	Host    string
}

// Build is a global holding compile-time information about the build
var Build = BuildInfo{
	Version: "0.3.1",
	Githash: "no git hash computed",
	Gitdate: "no git date computed",
	Date:    "no build date computed",
}

// StartTime is a global holding the time init() was run
var StartTime time.Time

// ProblemLogger will log warning messages to a file
var ProblemLogger *log.Logger

// UpdateLogger will log client updates to a file
var UpdateLogger *log.Logger

func init() {
	SetPortnumbers(5600)
	StartTime = time.Now()

	// The main program will override these, but at least initialize with sensible values
	ProblemLogger = log.New(os.Stderr, "", log.LstdFlags)
	UpdateLogger = log.New(os.Stderr, "", log.LstdFlags)
}
