// Package hal declares the hardware primitives the doorbell monitor is built on.
// Board support code implements these; the rest of the module never touches
// registers, drivers or sockets directly.
package hal

// Pin is a digital input. Read returns the logic level; the doorbell input is
// wired active-low, so a press reads false.
type Pin interface {
	Read() (bool, error)
}

// LED is a single digital output.
type LED interface {
	Set(on bool) error
}

// RadioStatus mirrors the association states reported by the wireless driver.
type RadioStatus int

const (
	StatusIdle RadioStatus = iota
	StatusConnecting
	StatusWrongPassword
	StatusNoAPFound
	StatusConnectFailed
	StatusGotIP
)

var statusNames = map[RadioStatus]string{
	StatusIdle:          "IDLE",
	StatusConnecting:    "CONNECTING",
	StatusWrongPassword: "WRONG_PASSWORD",
	StatusNoAPFound:     "NO_AP_FOUND",
	StatusConnectFailed: "CONNECT_FAIL",
	StatusGotIP:         "GOT_IP",
}

func (s RadioStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Radio is the station-mode wireless interface.
type Radio interface {
	// SetActive powers the interface on or off.
	SetActive(active bool) error
	// Associate starts joining the given network; it does not wait for completion.
	Associate(ssid, password string) error
	// Disassociate leaves the current network.
	Disassociate() error
	// Status reports the current association state.
	Status() RadioStatus
	// IsConnected reports whether the interface has an address.
	IsConnected() bool
}
