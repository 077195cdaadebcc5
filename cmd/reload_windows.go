package main

import "os"

// no SIGHUP on windows; watch then never reloads
var reloadSignals []os.Signal
