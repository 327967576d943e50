package trust

import "sort"

// Trust reasons, per §9's taxonomy.
const (
	ReasonWriterBoundToActiveKey   = "WRITER_BOUND_TO_ACTIVE_KEY"
	ReasonWriterHasNoActiveBinding = "WRITER_HAS_NO_ACTIVE_BINDING"
)

const (
	ModeWarn    = "warn"
	ModeEnforce = "enforce"

	WriterPolicyAllMustBeTrusted = "all_writers_must_be_trusted"
)

// Policy is the evaluator's configuration input.
type Policy struct {
	SchemaVersion int
	Mode          string
	WriterPolicy  string
}

func (p Policy) valid() bool {
	if p.SchemaVersion != schemaVersion1 {
		return false
	}
	if p.Mode != ModeWarn && p.Mode != ModeEnforce {
		return false
	}
	return p.WriterPolicy == WriterPolicyAllMustBeTrusted
}

// WriterAssessment is one writer's trust verdict.
type WriterAssessment struct {
	WriterId string
	Trusted  bool
	Reason   string
	KeyId    string // only set when Trusted
}

// Assessment is the evaluator's frozen output.
type Assessment struct {
	Status           Status
	Verdict          string // "not_configured" | "fail" | "pass"
	Writers          []WriterAssessment
	UntrustedWriters []string
}

const (
	VerdictNotConfigured = "not_configured"
	VerdictFail          = "fail"
	VerdictPass          = "pass"
)

// Evaluate produces a deterministic assessment, with writers sorted by id,
// of which writers are currently trusted under policy, given the chain's
// built state. Pure: state and policy are read-only.
func Evaluate(state *State, policy Policy, writerIds []string) Assessment {
	if !policy.valid() {
		return Assessment{Status: StatusError, Verdict: VerdictFail}
	}
	if state.Status == StatusNotConfigured {
		return Assessment{Status: StatusNotConfigured, Verdict: VerdictNotConfigured}
	}
	if state.Status == StatusError {
		return Assessment{Status: StatusError, Verdict: VerdictFail}
	}

	sorted := append([]string(nil), writerIds...)
	sort.Strings(sorted)

	var writers []WriterAssessment
	var untrusted []string
	for _, w := range sorted {
		if keyId, ok := state.TrustedKeyFor(w); ok {
			writers = append(writers, WriterAssessment{WriterId: w, Trusted: true, Reason: ReasonWriterBoundToActiveKey, KeyId: keyId})
		} else {
			writers = append(writers, WriterAssessment{WriterId: w, Trusted: false, Reason: ReasonWriterHasNoActiveBinding})
			untrusted = append(untrusted, w)
		}
	}

	verdict := VerdictPass
	if len(untrusted) > 0 {
		verdict = VerdictFail
	}
	return Assessment{Status: StatusOK, Verdict: verdict, Writers: writers, UntrustedWriters: untrusted}
}
