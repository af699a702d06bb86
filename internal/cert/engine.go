package cert

import (
	"fmt"
	"time"

	"certvault-go/internal/model"
)

// ProofValidityWindow is how long a generated proof stays verifiable.
const ProofValidityWindow = 24 * time.Hour

// ProofRequest holds the inputs for proof generation.
type ProofRequest struct {
	DocumentFingerprint string
	HolderID            string
	// Attributes is the full private attribute map of the document.
	Attributes map[string]any
	// SelectedDisclosures lists the attribute keys the holder chose to
	// reveal. Keys with no matching attribute are skipped, not rejected.
	SelectedDisclosures []string
	// Labels optionally maps attribute keys to human-readable labels for
	// the disclosure entries. Missing keys fall back to the key itself.
	Labels map[string]string
}

// VerifyStage identifies which gate of proof verification failed.
type VerifyStage string

const (
	StageStructure   VerifyStage = "structure"
	StageSignals     VerifyStage = "public-signals"
	StageNullifier   VerifyStage = "nullifier"
	StageCommitment  VerifyStage = "commitment"
	StageDisclosures VerifyStage = "disclosures"
	StageFreshness   VerifyStage = "freshness"
)

// ProofVerdict is the outcome of proof verification. An invalid proof is a
// normal result, not an error; Err carries the taxonomy sentinel for the
// failing stage so callers can branch with errors.Is.
type ProofVerdict struct {
	Valid       bool
	Stage       VerifyStage // failing stage when invalid
	Err         error       // taxonomy sentinel when invalid
	Message     string
	Disclosures []model.Disclosure
}

// ProofEngine generates and verifies selective-disclosure proofs. The proof
// shape mimics Groth16 serialization but every field is a hash commitment;
// see model.SimulatedProof.
type ProofEngine struct {
	registry NullifierRegistry
	clock    Clock
	salts    SaltSource
	logger   Logger
}

// NewProofEngine creates a ProofEngine with the provided dependencies.
func NewProofEngine(registry NullifierRegistry, clock Clock, salts SaltSource, logger Logger) *ProofEngine {
	return &ProofEngine{
		registry: registry,
		clock:    clock,
		salts:    salts,
		logger:   logger,
	}
}

// Generate builds a proof for the request with a fresh salt. Two calls over
// the same logical inputs produce distinct commitments and nullifiers.
func (e *ProofEngine) Generate(req ProofRequest) (*model.SimulatedProof, error) {
	salt, err := e.salts.Salt()
	if err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	attrs, err := canonicalJSON(req.Attributes)
	if err != nil {
		return nil, fmt.Errorf("serializing attributes: %w", err)
	}

	// Chained commitment: each step folds the previous digest into the next
	// input, so the final value binds every input without revealing any.
	digest := HashString(req.DocumentFingerprint)
	digest = HashString(digest + req.HolderID)
	digest = HashString(digest + string(attrs))
	commitment := HashString(digest + salt)

	nullifier := HashString(req.DocumentFingerprint + salt + "nullifier")

	var disclosures []model.Disclosure
	for _, key := range req.SelectedDisclosures {
		value, ok := req.Attributes[key]
		if !ok {
			continue
		}
		label := req.Labels[key]
		if label == "" {
			label = key
		}
		disclosures = append(disclosures, model.Disclosure{
			Key:          key,
			Label:        label,
			Value:        value,
			ProofElement: HashString(salt + ":" + key + ":" + fmt.Sprint(value)),
		})
	}

	proof := &model.SimulatedProof{
		Protocol:   model.ProofProtocol,
		Version:    model.ProofVersion,
		Commitment: commitment,
		Nullifier:  nullifier,
		PublicSignals: []string{
			commitment,
			nullifier,
			HashString(req.DocumentFingerprint),
		},
		Points:      derivePoints(commitment),
		Disclosures: disclosures,
		GeneratedAt: e.clock.Now(),
	}

	e.logger.Debug("proof generated",
		"fingerprint", req.DocumentFingerprint,
		"disclosures", len(disclosures))
	return proof, nil
}

// derivePoints fills the pi_a/pi_b/pi_c placeholders from the commitment.
// The last coordinate of each point carries the fixed identity sentinel that
// the structural gate checks on verification.
func derivePoints(commitment string) model.ProofPoints {
	return model.ProofPoints{
		PiA: [3]string{
			HashString(commitment + ":a0"),
			HashString(commitment + ":a1"),
			model.PointSentinelOne,
		},
		PiB: [3][2]string{
			{HashString(commitment + ":b00"), HashString(commitment + ":b01")},
			{HashString(commitment + ":b10"), HashString(commitment + ":b11")},
			{model.PointSentinelOne, model.PointSentinelZero},
		},
		PiC: [3]string{
			HashString(commitment + ":c0"),
			HashString(commitment + ":c1"),
			model.PointSentinelOne,
		},
	}
}

// Verify checks a proof against a document fingerprint. Gates run in a fixed
// order and short-circuit on the first failure; the verdict names the
// failing stage. Verification is a pure read unless consume is true and
// every gate passes, in which case the nullifier is atomically consumed.
//
// The returned error is reserved for registry I/O faults; an invalid proof
// is reported through the verdict.
func (e *ProofEngine) Verify(proof *model.SimulatedProof, fingerprint string, consume bool) (*ProofVerdict, error) {
	if v := checkStructure(proof); v != nil {
		return v, nil
	}
	if v := checkSignals(proof, fingerprint); v != nil {
		return v, nil
	}

	used, err := e.registry.Has(proof.Nullifier)
	if err != nil {
		return nil, fmt.Errorf("checking nullifier: %w", err)
	}
	if used {
		return invalid(StageNullifier, ErrNullifierReused, "nullifier already used"), nil
	}

	if v := checkCommitment(proof); v != nil {
		return v, nil
	}
	if v := checkDisclosures(proof); v != nil {
		return v, nil
	}

	age := e.clock.Now().Sub(proof.GeneratedAt)
	if age > ProofValidityWindow {
		return invalid(StageFreshness, ErrProofExpired,
			fmt.Sprintf("proof expired: generated %s ago, validity window is %s", age.Round(time.Minute), ProofValidityWindow)), nil
	}

	if consume {
		// TryConsume is the atomic gate: if a concurrent verification of
		// the same proof got here first, this call observes the consumed
		// bit and fails, closing the check-then-act window above.
		ok, err := e.registry.TryConsume(proof.Nullifier)
		if err != nil {
			return nil, fmt.Errorf("consuming nullifier: %w", err)
		}
		if !ok {
			return invalid(StageNullifier, ErrNullifierReused, "nullifier already used"), nil
		}
	}

	return &ProofVerdict{
		Valid:       true,
		Message:     "proof valid",
		Disclosures: proof.Disclosures,
	}, nil
}

func invalid(stage VerifyStage, err error, msg string) *ProofVerdict {
	return &ProofVerdict{Stage: stage, Err: err, Message: msg}
}

func checkStructure(proof *model.SimulatedProof) *ProofVerdict {
	if proof == nil {
		return invalid(StageStructure, ErrProofStructureInvalid, "no proof supplied")
	}
	if proof.Protocol != model.ProofProtocol || proof.Version != model.ProofVersion {
		return invalid(StageStructure, ErrProofStructureInvalid,
			fmt.Sprintf("unsupported proof protocol %q version %q", proof.Protocol, proof.Version))
	}

	p := proof.Points
	for i := 0; i < 2; i++ {
		if !isHexDigest(p.PiA[i]) || !isHexDigest(p.PiC[i]) {
			return invalid(StageStructure, ErrProofStructureInvalid, "malformed proof point coordinate")
		}
		if !isHexDigest(p.PiB[i][0]) || !isHexDigest(p.PiB[i][1]) {
			return invalid(StageStructure, ErrProofStructureInvalid, "malformed proof point coordinate")
		}
	}
	if p.PiA[2] != model.PointSentinelOne || p.PiC[2] != model.PointSentinelOne {
		return invalid(StageStructure, ErrProofStructureInvalid, "proof point identity sentinel missing")
	}
	if p.PiB[2][0] != model.PointSentinelOne || p.PiB[2][1] != model.PointSentinelZero {
		return invalid(StageStructure, ErrProofStructureInvalid, "proof point identity sentinel missing")
	}
	return nil
}

func checkSignals(proof *model.SimulatedProof, fingerprint string) *ProofVerdict {
	if len(proof.PublicSignals) != 3 {
		return invalid(StageSignals, ErrProofStructureInvalid,
			fmt.Sprintf("expected 3 public signals, got %d", len(proof.PublicSignals)))
	}
	for _, sig := range proof.PublicSignals {
		if !isHexDigest(sig) {
			return invalid(StageSignals, ErrProofStructureInvalid, "malformed public signal")
		}
	}
	if proof.PublicSignals[0] != proof.Commitment || proof.PublicSignals[1] != proof.Nullifier {
		return invalid(StageSignals, ErrProofStructureInvalid, "public signals do not match proof body")
	}
	if proof.PublicSignals[2] != HashString(fingerprint) {
		return invalid(StageSignals, ErrProofStructureInvalid, "proof is bound to a different document")
	}
	return nil
}

func checkCommitment(proof *model.SimulatedProof) *ProofVerdict {
	if !isHexDigest(proof.Commitment) {
		return invalid(StageCommitment, ErrProofStructureInvalid, "malformed commitment")
	}
	if !isHexDigest(proof.Nullifier) {
		return invalid(StageCommitment, ErrProofStructureInvalid, "malformed nullifier")
	}
	return nil
}

func checkDisclosures(proof *model.SimulatedProof) *ProofVerdict {
	for _, d := range proof.Disclosures {
		if d.Key == "" || d.Label == "" {
			return invalid(StageDisclosures, ErrProofStructureInvalid, "disclosure entry missing key or label")
		}
		if !isHexDigest(d.ProofElement) {
			return invalid(StageDisclosures, ErrProofStructureInvalid,
				fmt.Sprintf("disclosure %q has a malformed proof element", d.Key))
		}
	}
	return nil
}
