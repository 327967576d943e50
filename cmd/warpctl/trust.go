package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/git-warp/warp/pkg/metrics"
	"github.com/git-warp/warp/pkg/trust"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Manage and inspect the trust record chain",
}

func init() {
	trustCmd.AddCommand(trustAppendCmd)
	trustCmd.AddCommand(trustStatusCmd)

	trustStatusCmd.Flags().String("policy-file", "", "YAML file describing the evaluator policy")
	trustStatusCmd.Flags().String("writers", "", "Comma-separated writer ids to assess")
}

// recordFile is the YAML shape a trust-record input file takes: a record
// minus recordId/signature/issuedAt (computed here) plus a local signing
// key used only for this debug tool.
type recordFile struct {
	RecordType  string            `yaml:"recordType"`
	IssuerKeyId string            `yaml:"issuerKeyId"`
	Prev        *string           `yaml:"prev"`
	Subject     trust.Subject     `yaml:"subject"`
	Meta        map[string]string `yaml:"meta"`
	SigningKey  string            `yaml:"signingKey"` // base64, 64-byte ed25519 private key
}

// policyFile is the YAML shape of a trust.Policy, minus the schema version
// this tool always pins to 1.
type policyFile struct {
	Mode         string `yaml:"mode"`
	WriterPolicy string `yaml:"writerPolicy"`
}

var trustAppendCmd = &cobra.Command{
	Use:   "append <recordfile>",
	Short: "Sign and append a trust record described by a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading record file: %w", err)
		}
		var rf recordFile
		if err := yaml.Unmarshal(raw, &rf); err != nil {
			return fmt.Errorf("parsing record file: %w", err)
		}

		priv, err := decodeSigningKey(rf.SigningKey)
		if err != nil {
			return err
		}

		meta := make(map[string]any, len(rf.Meta))
		for k, v := range rf.Meta {
			meta[k] = v
		}

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()
		ctx := context.Background()

		prev := rf.Prev
		if prev == nil {
			tip, _, found, err := trust.ReadTip(ctx, d.store, d.codec, d.graph)
			if err != nil {
				return fmt.Errorf("reading trust chain tip: %w", err)
			}
			if found {
				tipID := tip.RecordId
				prev = &tipID
			}
		}

		r := trust.Record{
			SchemaVersion: 1,
			RecordType:    trust.RecordType(rf.RecordType),
			IssuerKeyId:   rf.IssuerKeyId,
			IssuedAt:      time.Now().UTC().Format(time.RFC3339),
			Prev:          prev,
			Subject:       rf.Subject,
			Meta:          meta,
		}

		idPayload, err := trust.RecordIDPayload(r)
		if err != nil {
			return fmt.Errorf("computing record id: %w", err)
		}
		recordID, err := d.crypt.Hash("sha256", idPayload)
		if err != nil {
			return fmt.Errorf("hashing record id: %w", err)
		}
		r.RecordId = recordID

		signPayload, err := trust.SignaturePayload(r)
		if err != nil {
			return fmt.Errorf("computing signature payload: %w", err)
		}
		sig, err := d.crypt.Sign(priv, signPayload)
		if err != nil {
			return fmt.Errorf("signing record: %w", err)
		}
		r.Signature = trust.Signature{Alg: "ed25519", Sig: base64.StdEncoding.EncodeToString(sig)}

		sha, err := trust.Append(ctx, d.store, d.codec, d.graph, r)
		if err != nil {
			return fmt.Errorf("appending trust record: %w", err)
		}
		metrics.TrustRecordsAppended.WithLabelValues(string(r.RecordType)).Inc()

		fmt.Printf("appended %s recordId=%s commit=%s\n", r.RecordType, r.RecordId, sha)
		return nil
	},
}

func decodeSigningKey(b64 string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decoding signingKey: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signingKey must be %d raw bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return ed25519.PrivateKey(raw), nil
}

var trustStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the trust chain's built state and per-writer assessment",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()
		ctx := context.Background()

		records, err := trust.Chain(ctx, d.store, d.codec, d.graph)
		if err != nil {
			return fmt.Errorf("walking trust chain: %w", err)
		}
		if !trust.VerifyChain(records) {
			fmt.Println("WARNING: trust chain failed structural verification")
		}

		state := trust.BuildState(records)
		fmt.Printf("chain length=%d status=%s\n", len(records), state.Status)
		for _, e := range state.Errors {
			fmt.Printf("  error: %s\n", e)
		}

		policyPath, _ := cmd.Flags().GetString("policy-file")
		writersCSV, _ := cmd.Flags().GetString("writers")
		if policyPath == "" || writersCSV == "" {
			return nil
		}

		policyRaw, err := os.ReadFile(policyPath)
		if err != nil {
			return fmt.Errorf("reading policy file: %w", err)
		}
		var pf policyFile
		if err := yaml.Unmarshal(policyRaw, &pf); err != nil {
			return fmt.Errorf("parsing policy file: %w", err)
		}
		policy := trust.Policy{SchemaVersion: 1, Mode: pf.Mode, WriterPolicy: pf.WriterPolicy}

		var writers []string
		for _, w := range strings.Split(writersCSV, ",") {
			if w = strings.TrimSpace(w); w != "" {
				writers = append(writers, w)
			}
		}

		assessment := trust.Evaluate(state, policy, writers)
		metrics.TrustEvaluationsTotal.WithLabelValues(assessment.Verdict).Inc()
		if state.Status == trust.StatusError {
			metrics.TrustChainErrors.Inc()
		}

		fmt.Printf("verdict=%s\n", assessment.Verdict)
		for _, w := range assessment.Writers {
			fmt.Printf("  writer=%s trusted=%v reason=%s\n", w.WriterId, w.Trusted, w.Reason)
		}
		return nil
	},
}
