// Package logging configures the dual-sink (stdout + append-mode file)
// logger every node process writes through, matching the
// logging.Formatter/FileHandler/StreamHandler pair in
// original_source/{seed,peer}.py.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Role distinguishes the two node kinds in both the log tag and the
// output file name.
type Role string

const (
	RoleSeed Role = "SEED"
	RolePeer Role = "PEER"
)

// timeTagFormatter renders "HH:MM:SS [ROLE id] message", the exact
// line shape spec.md §6 requires.
type timeTagFormatter struct {
	role Role
	id   string
}

func (f *timeTagFormatter) Format(e *logrus.Entry) ([]byte, error) {
	line := fmt.Sprintf("%s [%s %s] %s\n",
		e.Time.Format("15:04:05"), f.role, f.id, e.Message)
	return []byte(line), nil
}

// New opens "outputfile_{seed|peer}_<port>.txt" in append mode and
// returns a logger that writes every entry to both it and stdout. id
// is the node's own endpoint string, used as the log tag.
func New(role Role, port int, id string) (*logrus.Logger, error) {
	name := fmt.Sprintf("outputfile_%s_%d.txt", roleFileTag(role), port)
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("logging: cannot open %s: %w", name, err)
	}

	logger := logrus.New()
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	logger.SetFormatter(&timeTagFormatter{role: role, id: id})
	logger.SetLevel(logrus.DebugLevel)
	return logger, nil
}

func roleFileTag(role Role) string {
	if role == RoleSeed {
		return "seed"
	}
	return "peer"
}
