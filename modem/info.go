package modem

import "sync"

// RegistrationState is the network registration status reported by +CEREG.
type RegistrationState int

const (
	RegistrationInit RegistrationState = iota - 1
	RegistrationNotRegistered
	RegistrationHome
	RegistrationSearching
	RegistrationDenied
	RegistrationUnknown
	RegistrationRoaming
)

func (r RegistrationState) String() string {
	switch r {
	case RegistrationInit:
		return "init"
	case RegistrationNotRegistered:
		return "not-registered"
	case RegistrationHome:
		return "home"
	case RegistrationSearching:
		return "searching"
	case RegistrationDenied:
		return "denied"
	case RegistrationRoaming:
		return "roaming"
	}
	return "unknown"
}

func (r RegistrationState) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Registered reports whether the modem is on its home network or roaming.
func (r RegistrationState) Registered() bool {
	return r == RegistrationHome || r == RegistrationRoaming
}

// registrationFromCode maps a +CEREG <stat> value. Codes the driver does
// not act on collapse to RegistrationUnknown.
func registrationFromCode(code int) RegistrationState {
	switch code {
	case 0:
		return RegistrationNotRegistered
	case 1:
		return RegistrationHome
	case 2:
		return RegistrationSearching
	case 3:
		return RegistrationDenied
	case 5:
		return RegistrationRoaming
	}
	return RegistrationUnknown
}

// RSSIInvalid marks a signal reading that is missing or out of range.
const RSSIInvalid = -1000

// Info is the modem identity and radio state gathered during bring-up and
// polling. Fields are overwritten as responses arrive, never cleared.
type Info struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	Revision     string `json:"revision,omitempty"`
	IMEI         string `json:"imei,omitempty"`
	IMSI         string `json:"imsi,omitempty"`

	// RSSI is in dBm, or RSSIInvalid.
	RSSI              int    `json:"rssi"`
	Operator          int    `json:"operator,omitempty"`
	AutomaticOperator bool   `json:"automaticOperator"`
	LAC               int    `json:"lac,omitempty"`
	CellID            int    `json:"cellId,omitempty"`
	AccessTechnology  int    `json:"accessTechnology,omitempty"`
	Address           string `json:"address,omitempty"`
	Attached          bool   `json:"attached"`

	Registration RegistrationState `json:"registration"`
}

// infoStore guards Info. Response handlers write it from the receive loop
// while status readers take snapshots from other goroutines.
type infoStore struct {
	mu   sync.RWMutex
	info Info
}

func newInfoStore() *infoStore {
	return &infoStore{info: Info{
		RSSI:         RSSIInvalid,
		Registration: RegistrationInit,
	}}
}

func (s *infoStore) update(f func(*Info)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.info)
}

func (s *infoStore) snapshot() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}
