package wire

import "fmt"

// Endpoint identifies any node in the mesh by (ip, port). Its string
// form is the canonical seed-id / peer-id used throughout consensus
// and suspicion bookkeeping.
type Endpoint struct {
	IP   string
	Port int
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.IP, e.Port)
}

// ID is an alias for String kept around call sites that read more
// naturally asking for an identity than a string conversion.
func (e Endpoint) ID() string {
	return e.String()
}
