// Package config loads the rendercaps tool configuration.
//
// A configuration file is either YAML (rendercaps.yaml) or CUE
// (rendercaps.cue). CUE files are unified with the built-in #Config
// definition before decoding, so unknown fields and out-of-range values are
// reported with file positions. Both formats are then checked against the
// validator struct tags on Config.
//
// Values absent from the file keep the values from DefaultConfig. Durations
// are strings such as "500ms" in YAML and nanosecond integers in CUE.
//
//	cfg, err := config.Load("rendercaps.yaml")
//	if err != nil {
//	    return err
//	}
//	for _, src := range cfg.Sources {
//	    ...
//	}
package config
