// Package config resolves the interviewroom client configuration.
//
// Values are layered, highest priority first:
//  1. Command-line flags
//  2. INTERVIEWROOM_* environment variables
//  3. .interviewroom.yaml in the working directory
//  4. ~/.config/interviewroom/config.yaml
//  5. Built-in defaults
//
// Each resolved value remembers its Source, which `interviewroom config`
// prints next to the value.
//
//	cfg, err := config.Load(map[string]string{config.KeyAPIURL: *apiURL})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.PollInterval) // 4s
//
// SaveConfig backs `interviewroom config set`. The global file is written
// owner-only because it may hold the speech-to-text API key.
package config
