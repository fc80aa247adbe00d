package daemon

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/breez/swapd/chainntnfs"
	"github.com/breez/swapd/swapstate"
)

// logWriter fans writes out to stdout and to the rotator, mirroring
// daemon/log.go's build.LogWriter (that helper package was never part of
// this retrieval, so its one responsibility — duplicate a write to both
// sinks — is folded directly in here).
type logWriter struct {
	RotatorPipe *io.PipeWriter
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if w.RotatorPipe != nil {
		w.RotatorPipe.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem. A single backend logger is created and all
// subsystem loggers created from it write to the backend. Loggers can not be
// used before the log rotator has been initialized with a log file by
// initLogRotator.
var (
	logWriterInst = &logWriter{}
	backendLog    = btclog.NewBackend(logWriterInst)
	logRotator    *rotator.Rotator

	swpdLog = backendLog.Logger("SWPD")
	ntfnLog = backendLog.Logger("NTFN")
	fsmLog  = backendLog.Logger("SFSM")
	actnLog = backendLog.Logger("ACTN")
	stteLog = backendLog.Logger("STTE")
	dbLog   = backendLog.Logger("SWDB")
	httpLog = backendLog.Logger("SHTP")
	peerLog = backendLog.Logger("SPER")
)

func init() {
	chainntnfs.UseLogger(ntfnLog)
	swapstate.UseLogger(stteLog)
}

// subsystemLoggers maps each subsystem identifier to its logger, for
// setLogLevel/setLogLevels.
var subsystemLoggers = map[string]btclog.Logger{
	"SWPD": swpdLog,
	"NTFN": ntfnLog,
	"SFSM": fsmLog,
	"ACTN": actnLog,
	"STTE": stteLog,
	"SWDB": dbLog,
	"SHTP": httpLog,
	"SPER": peerLog,
}

// initLogRotator initializes the logging rotator to write logs to logFile
// and create roll files in the same directory. It must be called before the
// package-global log rotator variables are used.
func initLogRotator(logFile string, maxLogFileSize, maxLogFiles int) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("daemon: create log directory: %w", err)
	}
	r, err := rotator.New(logFile, int64(maxLogFileSize*1024), false, maxLogFiles)
	if err != nil {
		return fmt.Errorf("daemon: create log rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go r.Run(pr)

	logWriterInst.RotatorPipe = pw
	logRotator = r
	return nil
}

// setLogLevel sets the logging level for the named subsystem. Invalid
// subsystems are ignored.
func setLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for every subsystem logger.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}
