package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"certvault-go/internal/app"
	"certvault-go/internal/config"
	"certvault-go/internal/model"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// a.Close(). operation identifies the CLI command being run (e.g. "Issue").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// parsePairs turns repeated key=value flags into a map.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		m[key] = value
	}
	return m, nil
}

// parseAttrs is parsePairs with JSON-decoded values, so --attr ageOver18=true
// yields a boolean and --attr name=Alice a string.
func parseAttrs(pairs []string) (map[string]any, error) {
	raw, err := parsePairs(pairs)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	m := make(map[string]any, len(raw))
	for key, value := range raw {
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			m[key] = decoded
		} else {
			m[key] = value
		}
	}
	return m, nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

func printCertList(records []*model.CertificateRecord) error {
	for _, r := range records {
		fmt.Printf("%s  %-9s  %-12s  %s  issuer:%s holder:%s\n",
			r.DocumentFingerprint[:12], r.Status, r.DocumentType,
			r.CreatedAt.Format("2006-01-02"), r.Issuer, r.Holder)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "certvault",
	Short: "Certificate ledger with selective-disclosure proofs",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		nodeID := uuid.New().String()
		cfg := config.NewConfig(nodeID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Node ID: %s\n", nodeID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Node ID:  %s\n", cfg.NodeID)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Database: %s\n", cfg.Database.Type)
		fmt.Printf("Vault:    %s\n", cfg.Vault.Type)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the document encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := promptPassphrase("Passphrase for private key: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupKeys(passphrase); err != nil {
			return fmt.Errorf("setting up keys: %w", err)
		}

		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// issue command
var issueCmd = &cobra.Command{
	Use:   "issue DOCUMENT",
	Short: "Issue a certificate for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issuer, _ := cmd.Flags().GetString("issuer")
		holder, _ := cmd.Flags().GetString("holder")
		docType, _ := cmd.Flags().GetString("type")
		category, _ := cmd.Flags().GetString("category")
		metaPairs, _ := cmd.Flags().GetStringArray("meta")
		attrPairs, _ := cmd.Flags().GetStringArray("attr")
		disclosures, _ := cmd.Flags().GetStringArray("disclose")
		encrypt, _ := cmd.Flags().GetBool("encrypt")
		proofOut, _ := cmd.Flags().GetString("proof-out")

		metadata, err := parsePairs(metaPairs)
		if err != nil {
			return fmt.Errorf("parsing --meta: %w", err)
		}
		attributes, err := parseAttrs(attrPairs)
		if err != nil {
			return fmt.Errorf("parsing --attr: %w", err)
		}

		a, err := newApp("Issue")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Issue(app.IssueParams{
			DocumentPath:     args[0],
			Issuer:           issuer,
			Holder:           holder,
			DocumentType:     docType,
			DocumentCategory: category,
			Metadata:         metadata,
			Attributes:       attributes,
			Disclosures:      disclosures,
			Encrypt:          encrypt,
		})
		if err != nil {
			return fmt.Errorf("issuing certificate: %w", err)
		}

		if proofOut != "" {
			proofJSON, err := json.MarshalIndent(result.Certificate.Proof, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding proof: %w", err)
			}
			if err := os.WriteFile(proofOut, proofJSON, 0600); err != nil {
				return fmt.Errorf("writing proof file: %w", err)
			}
		}

		fmt.Printf("Certificate issued: %s\n", result.Certificate.ID)
		fmt.Printf("Fingerprint: %s\n", result.Certificate.DocumentFingerprint)
		fmt.Printf("Block: #%d  Transaction: %s\n", result.Block.Number, result.Transaction.Hash)
		return nil
	},
}

// prove command
var proveCmd = &cobra.Command{
	Use:   "prove FINGERPRINT",
	Short: "Generate a fresh proof for an issued certificate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		holder, _ := cmd.Flags().GetString("holder")
		attrPairs, _ := cmd.Flags().GetStringArray("attr")
		disclosures, _ := cmd.Flags().GetStringArray("disclose")
		outPath, _ := cmd.Flags().GetString("out")

		attributes, err := parseAttrs(attrPairs)
		if err != nil {
			return fmt.Errorf("parsing --attr: %w", err)
		}

		a, err := newApp("Prove")
		if err != nil {
			return err
		}
		defer a.Close()

		proof, err := a.Prove(args[0], holder, attributes, disclosures)
		if err != nil {
			return fmt.Errorf("generating proof: %w", err)
		}

		raw, err := json.MarshalIndent(proof, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding proof: %w", err)
		}
		if outPath == "" {
			fmt.Println(string(raw))
			return nil
		}
		if err := os.WriteFile(outPath, raw, 0600); err != nil {
			return fmt.Errorf("writing proof file: %w", err)
		}
		fmt.Printf("Proof written to %s\n", outPath)
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify FINGERPRINT",
	Short: "Verify a certificate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proofPath, _ := cmd.Flags().GetString("proof")
		verifierID, _ := cmd.Flags().GetString("verifier")
		requireProof, _ := cmd.Flags().GetBool("require-proof")

		a, err := newApp("Verify")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Verify(args[0], proofPath, verifierID, requireProof)
		if err != nil {
			return fmt.Errorf("verifying certificate: %w", err)
		}

		if result.Valid {
			fmt.Printf("VALID: %s\n", result.Message)
			for _, d := range result.Disclosures {
				fmt.Printf("  %s: %v\n", d.Label, d.Value)
			}
		} else {
			fmt.Printf("INVALID: %s\n", result.Message)
		}
		fmt.Printf("Audit: block #%d  transaction %s\n", result.Block.Number, result.Transaction.Hash)
		return nil
	},
}

// status transition commands
func transitionCmd(use, short, operation string, run func(a *app.App, fingerprint, by, reason string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			by, _ := cmd.Flags().GetString("by")
			reason, _ := cmd.Flags().GetString("reason")

			a, err := newApp(operation)
			if err != nil {
				return err
			}
			defer a.Close()

			return run(a, args[0], by, reason)
		},
	}
	cmd.Flags().String("by", "", "Actor id performing the change")
	cmd.Flags().String("reason", "", "Reason for the change")
	return cmd
}

func printMutation(success bool, message string) error {
	if !success {
		return fmt.Errorf("%s", message)
	}
	fmt.Println(message)
	return nil
}

var revokeCmd = transitionCmd("revoke FINGERPRINT", "Revoke a certificate", "Revoke",
	func(a *app.App, fingerprint, by, reason string) error {
		result, err := a.Revoke(fingerprint, by, reason)
		if err != nil {
			return err
		}
		return printMutation(result.Success, result.Message)
	})

var suspendCmd = transitionCmd("suspend FINGERPRINT", "Suspend a certificate", "Suspend",
	func(a *app.App, fingerprint, by, reason string) error {
		result, err := a.Suspend(fingerprint, by, reason)
		if err != nil {
			return err
		}
		return printMutation(result.Success, result.Message)
	})

var reinstateCmd = transitionCmd("reinstate FINGERPRINT", "Reinstate a suspended certificate", "Reinstate",
	func(a *app.App, fingerprint, by, reason string) error {
		result, err := a.Reinstate(fingerprint, by, reason)
		if err != nil {
			return err
		}
		return printMutation(result.Success, result.Message)
	})

// cert command
var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Query certificates",
}

var certListCmd = &cobra.Command{
	Use:   "list",
	Short: "List certificates",
	RunE: func(cmd *cobra.Command, args []string) error {
		issuer, _ := cmd.Flags().GetString("issuer")
		holder, _ := cmd.Flags().GetString("holder")

		a, err := newApp("ListCertificates")
		if err != nil {
			return err
		}
		defer a.Close()

		switch {
		case issuer != "":
			recs, err := a.CertificatesByIssuer(issuer)
			if err != nil {
				return err
			}
			return printCertList(recs)
		case holder != "":
			recs, err := a.CertificatesByHolder(holder)
			if err != nil {
				return err
			}
			return printCertList(recs)
		default:
			recs, err := a.Certificates()
			if err != nil {
				return err
			}
			return printCertList(recs)
		}
	},
}

var certShowCmd = &cobra.Command{
	Use:   "show FINGERPRINT",
	Short: "Show a certificate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShowCertificate")
		if err != nil {
			return err
		}
		defer a.Close()

		record, err := a.CertificateByFingerprint(args[0])
		if err != nil {
			return err
		}
		return printJSON(record)
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export FINGERPRINT",
	Short: "Export the document behind a certificate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")
		askPass, _ := cmd.Flags().GetBool("passphrase")

		a, err := newApp("Export")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if askPass {
			passphrase, err = promptPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		if err := a.Export(args[0], outPath, passphrase); err != nil {
			return fmt.Errorf("exporting document: %w", err)
		}

		fmt.Printf("Document written to %s\n", outPath)
		return nil
	},
}

// vault command
var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the document vault",
}

var vaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate vault connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ValidateVault")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateVault(); err != nil {
			return fmt.Errorf("vault check failed: %w", err)
		}
		fmt.Println("Vault OK.")
		return nil
	},
}

// chain command
var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Inspect the ledger chain",
}

var chainBlocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "List blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListBlocks")
		if err != nil {
			return err
		}
		defer a.Close()

		blocks, err := a.Blocks()
		if err != nil {
			return err
		}
		for _, b := range blocks {
			fmt.Printf("#%d  %s  parent:%s  txs:%d  %s\n",
				b.Number, b.Hash[:12], b.ParentHash[:12], len(b.Transactions),
				b.MinedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var chainTxsCmd = &cobra.Command{
	Use:   "txs",
	Short: "List transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListTransactions")
		if err != nil {
			return err
		}
		defer a.Close()

		txs, err := a.Transactions()
		if err != nil {
			return err
		}
		for _, tx := range txs {
			fmt.Printf("%s  #%d  %-20s  %-8s  %s\n",
				tx.Hash[:12], tx.BlockNumber, tx.Method, tx.Status,
				tx.Timestamp.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var chainEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListEvents")
		if err != nil {
			return err
		}
		defer a.Close()

		events, err := a.Events()
		if err != nil {
			return err
		}
		for _, ev := range events {
			outcome := ""
			if ev.Outcome != "" {
				outcome = "  " + ev.Outcome
			}
			fmt.Printf("#%d  %-10s  %s%s\n", ev.BlockNumber, ev.Type, ev.DocumentFingerprint, outcome)
		}
		return nil
	},
}

var chainCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify block linkage integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CheckChain")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CheckChain(); err != nil {
			return fmt.Errorf("chain check failed: %w", err)
		}
		fmt.Println("Chain OK.")
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Stats()
		if err != nil {
			return err
		}

		fmt.Printf("Certificates: %d (active:%d revoked:%d suspended:%d)\n",
			stats.TotalCertificates, stats.Active, stats.Revoked, stats.Suspended)
		fmt.Printf("Blocks: %d  Transactions: %d\n", stats.TotalBlocks, stats.TotalTransactions)
		fmt.Printf("Verifications: %d valid, %d invalid\n",
			stats.ValidVerifications, stats.InvalidVerifications)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// issue flags
	issueCmd.Flags().String("issuer", "", "Issuer id")
	issueCmd.Flags().String("holder", "", "Holder id")
	issueCmd.Flags().String("type", "", "Document type")
	issueCmd.Flags().String("category", "", "Document category")
	issueCmd.Flags().StringArray("meta", nil, "Metadata entry (key=value, repeatable)")
	issueCmd.Flags().StringArray("attr", nil, "Document attribute (key=value, repeatable)")
	issueCmd.Flags().StringArray("disclose", nil, "Attribute key to disclose (repeatable)")
	issueCmd.Flags().Bool("encrypt", false, "Encrypt the document in the vault")
	issueCmd.Flags().String("proof-out", "", "Write the holder's proof to this file")

	// prove flags
	proveCmd.Flags().String("holder", "", "Holder id")
	proveCmd.Flags().StringArray("attr", nil, "Document attribute (key=value, repeatable)")
	proveCmd.Flags().StringArray("disclose", nil, "Attribute key to disclose (repeatable)")
	proveCmd.Flags().String("out", "", "Write the proof to this file instead of stdout")

	// verify flags
	verifyCmd.Flags().String("proof", "", "Path to the holder's proof file")
	verifyCmd.Flags().String("verifier", "", "Verifier id")
	verifyCmd.Flags().Bool("require-proof", true, "Require the full proof protocol (disable for the hash-only check)")

	// cert subcommands
	certCmd.AddCommand(certListCmd)
	certCmd.AddCommand(certShowCmd)
	certListCmd.Flags().String("issuer", "", "Filter by issuer id")
	certListCmd.Flags().String("holder", "", "Filter by holder id")

	// export flags
	exportCmd.Flags().String("out", "", "Output file path")
	exportCmd.MarkFlagRequired("out")
	exportCmd.Flags().Bool("passphrase", false, "Prompt for the decryption passphrase")

	// vault subcommands
	vaultCmd.AddCommand(vaultCheckCmd)

	// chain subcommands
	chainCmd.AddCommand(chainBlocksCmd)
	chainCmd.AddCommand(chainTxsCmd)
	chainCmd.AddCommand(chainEventsCmd)
	chainCmd.AddCommand(chainCheckCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(proveCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(suspendCmd)
	rootCmd.AddCommand(reinstateCmd)
	rootCmd.AddCommand(certCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(vaultCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(statsCmd)
}
