// config_features.go - Feature-Flags und Cache-Konfiguration
//
// Dieses Modul enthaelt:
// - Feature-Flags (NoProgress)
// - Cache- und Profiling-Einstellungen
package envconfig

// =============================================================================
// Feature-Flags
// =============================================================================

var (
	// NoProgress deaktiviert die Fortschrittsanzeige beim Laden
	NoProgress = Bool("APHRODITE_NOPROGRESS")
)

// =============================================================================
// Cache- und Profiling-Einstellungen
// =============================================================================

var (
	// BlockSize setzt die Anzahl Tokens pro KV-Cache-Block
	// Konfigurierbar via APHRODITE_BLOCK_SIZE
	BlockSize = Uint("APHRODITE_BLOCK_SIZE", 16)

	// MaxBatchedTokens setzt die maximale Tokenanzahl eines Batches
	// Konfigurierbar via APHRODITE_MAX_NUM_BATCHED_TOKENS
	MaxBatchedTokens = Uint("APHRODITE_MAX_NUM_BATCHED_TOKENS", 2048)

	// MaxSequences setzt die maximale Anzahl Sequenzen eines Batches
	// Konfigurierbar via APHRODITE_MAX_NUM_SEQS
	MaxSequences = Uint("APHRODITE_MAX_NUM_SEQS", 64)

	// ProfileStep setzt die Profiling-Schrittnummer
	// Konfigurierbar via APHRODITE_PROFILE_STEP
	ProfileStep = Uint("APHRODITE_PROFILE_STEP", 0)
)

// =============================================================================
// Hugging Face Cache
// =============================================================================

var (
	// HubCache ueberschreibt das Hub-Cache-Verzeichnis
	HubCache = String("HF_HUB_CACHE")

	// HFHome setzt das Hugging Face Basisverzeichnis
	HFHome = String("HF_HOME")
)
