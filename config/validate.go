package config

import "fmt"

// Validate checks configuration correctness. It performs declarative
// validation only; it must not mutate cfg.
func Validate(cfg Config) error {
	if cfg.SessionTimeout <= 0 {
		return fmt.Errorf("config: session_timeout must be > 0")
	}
	if cfg.ValidationTimeout <= 0 {
		return fmt.Errorf("config: validation_timeout must be > 0")
	}
	if cfg.ErrorSelfHeal <= 0 {
		return fmt.Errorf("config: error_self_heal must be > 0")
	}
	if cfg.RecoverySelfHeal <= 0 {
		return fmt.Errorf("config: recovery_self_heal must be > 0")
	}
	if cfg.MaxSequenceErrors <= 0 {
		return fmt.Errorf("config: max_sequence_errors must be > 0")
	}
	if cfg.MaxQueueDrops <= 0 {
		return fmt.Errorf("config: max_queue_drops must be > 0")
	}
	if cfg.MaxImageSize == 0 {
		return fmt.Errorf("config: max_image_size must be > 0")
	}
	if cfg.MaxImageSize > 1<<20 {
		return fmt.Errorf("config: max_image_size %d exceeds the 1 MiB flash budget", cfg.MaxImageSize)
	}
	return nil
}
