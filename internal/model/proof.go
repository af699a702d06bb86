package model

import "time"

// Proof protocol identifiers. The proof structure mirrors the shape of a
// Groth16 proof but the contents are hash commitments, not curve points —
// hence "simulated". The only security property this layer provides is
// hash-preimage resistance; it must not be presented as a succinct proof.
const (
	ProofProtocol = "groth16-sim"
	ProofVersion  = "1"
)

// Point sentinels: the third coordinate of each placeholder point is the
// projective identity, exactly as serialized Groth16 proofs carry it. Verify
// checks these values as part of the structural gate.
const (
	PointSentinelOne  = "1"
	PointSentinelZero = "0"
)

// ProofPoints are the pi_a/pi_b/pi_c placeholder points of a simulated
// proof. The first coordinates are hex digests derived from the commitment;
// the last coordinate of each point is a fixed identity sentinel.
type ProofPoints struct {
	PiA [3]string    `json:"pi_a"`
	PiB [3][2]string `json:"pi_b"`
	PiC [3]string    `json:"pi_c"`
}

// Disclosure is one attribute the holder chose to reveal.
type Disclosure struct {
	Key          string `json:"key"`
	Label        string `json:"label"`
	Value        any    `json:"value"`
	ProofElement string `json:"proofElement"` // hash binding the value to the proof salt
}

// SimulatedProof is a selective-disclosure proof bound to a document
// fingerprint. Immutable once generated; ownership passes to whichever
// CertificateRecord embeds it.
type SimulatedProof struct {
	Protocol      string       `json:"protocol"`
	Version       string       `json:"version"`
	Commitment    string       `json:"commitment"` // chained hash over fingerprint, holder, attributes, salt
	Nullifier     string       `json:"nullifier"`  // single-use token, derived from fingerprint + salt
	PublicSignals []string     `json:"publicSignals"`
	Points        ProofPoints  `json:"proof"`
	Disclosures   []Disclosure `json:"disclosures"`
	GeneratedAt   time.Time    `json:"generatedAt"`
}
