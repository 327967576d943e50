package trust

import "fmt"

// Status summarizes how a State came to be: no records were ever walked,
// the walk completed cleanly, or the walk accumulated errors.
type Status string

const (
	StatusNotConfigured Status = "not_configured"
	StatusOK            Status = "ok"
	StatusError         Status = "error"
)

// State is the accumulated result of walking a trust chain oldest-first.
// Errors are recorded, never thrown — the walk always runs to completion so
// a broken chain can still be audited offline.
type State struct {
	ActiveKeys      map[string]string              // keyId -> base64 public key
	RevokedKeys     map[string]struct{}            // keyId
	WriterKeys      map[string]map[string]struct{} // writerId -> set of keyIds with an active binding
	RevokedBindings map[string]struct{}            // "<writerId>\x00<keyId>"
	Errors          []string
	Status          Status
}

func newState() *State {
	return &State{
		ActiveKeys:      make(map[string]string),
		RevokedKeys:     make(map[string]struct{}),
		WriterKeys:      make(map[string]map[string]struct{}),
		RevokedBindings: make(map[string]struct{}),
	}
}

// BuildState walks records in chain order (oldest first), accumulating key
// and binding state per §4.F's monotonic-revocation rules.
func BuildState(records []Record) *State {
	s := newState()
	if len(records) == 0 {
		s.Status = StatusNotConfigured
		return s
	}

	for _, r := range records {
		switch r.RecordType {
		case KeyAdd:
			s.applyKeyAdd(r)
		case KeyRevoke:
			s.applyKeyRevoke(r)
		case WriterBindAdd:
			s.applyWriterBindAdd(r)
		case WriterBindRevoke:
			s.applyWriterBindRevoke(r)
		default:
			s.Errors = append(s.Errors, fmt.Sprintf("record %s: unknown recordType %q", r.RecordId, r.RecordType))
		}
	}

	if len(s.Errors) > 0 {
		s.Status = StatusError
	} else {
		s.Status = StatusOK
	}
	return s
}

func (s *State) applyKeyAdd(r Record) {
	keyId := r.Subject.KeyId
	if _, revoked := s.RevokedKeys[keyId]; revoked {
		s.Errors = append(s.Errors, fmt.Sprintf("record %s: KEY_ADD on revoked key %s", r.RecordId, keyId))
		return
	}
	s.ActiveKeys[keyId] = r.Subject.PublicKey
}

func (s *State) applyKeyRevoke(r Record) {
	keyId := r.Subject.KeyId
	if _, revoked := s.RevokedKeys[keyId]; revoked {
		s.Errors = append(s.Errors, fmt.Sprintf("record %s: KEY_REVOKE of already-revoked key %s", r.RecordId, keyId))
		return
	}
	if _, active := s.ActiveKeys[keyId]; !active {
		s.Errors = append(s.Errors, fmt.Sprintf("record %s: KEY_REVOKE of unknown key %s", r.RecordId, keyId))
		return
	}
	delete(s.ActiveKeys, keyId)
	s.RevokedKeys[keyId] = struct{}{}
}

func (s *State) applyWriterBindAdd(r Record) {
	writerId, keyId := r.Subject.WriterId, r.Subject.KeyId
	if _, active := s.ActiveKeys[keyId]; !active {
		s.Errors = append(s.Errors, fmt.Sprintf("record %s: WRITER_BIND_ADD references non-active key %s", r.RecordId, keyId))
		return
	}
	if s.WriterKeys[writerId] == nil {
		s.WriterKeys[writerId] = make(map[string]struct{})
	}
	s.WriterKeys[writerId][keyId] = struct{}{}
}

func (s *State) applyWriterBindRevoke(r Record) {
	writerId, keyId := r.Subject.WriterId, r.Subject.KeyId
	bound := s.WriterKeys[writerId] != nil
	if bound {
		_, bound = s.WriterKeys[writerId][keyId]
	}
	bindingKey := writerId + "\x00" + keyId
	if _, alreadyRevoked := s.RevokedBindings[bindingKey]; !bound || alreadyRevoked {
		s.Errors = append(s.Errors, fmt.Sprintf("record %s: WRITER_BIND_REVOKE of inactive binding %s/%s", r.RecordId, writerId, keyId))
		return
	}
	delete(s.WriterKeys[writerId], keyId)
	s.RevokedBindings[bindingKey] = struct{}{}
}

// TrustedKeyFor returns the lexicographically first keyId that has an
// active binding to writerId AND is itself still an active key, i.e. a
// binding whose key was later revoked no longer counts.
func (s *State) TrustedKeyFor(writerId string) (string, bool) {
	keys := s.WriterKeys[writerId]
	var best string
	found := false
	for keyId := range keys {
		if _, active := s.ActiveKeys[keyId]; !active {
			continue
		}
		if !found || keyId < best {
			best = keyId
			found = true
		}
	}
	return best, found
}
