package sshutil

import (
	"net"
	"strconv"
)

// Default connection values applied when the ssh config leaves them unset.
const (
	DefaultPort uint16 = 22
	DefaultUser        = "root"
)

// Params holds the resolved connection settings for one target.
type Params struct {
	Host         string
	Port         uint16
	User         string
	IdentityFile string
}

// Address returns the host:port string for dialing.
func (p Params) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(int(p.Port)))
}

// String renders the params the way ssh would describe the destination.
func (p Params) String() string {
	return p.User + "@" + p.Address()
}
