// Package config loads the veeprom configuration file.
//
// The file is YAML and is decoded strictly, so misspelt keys are errors:
//
//	image: flash.img
//	log_level: info
//	geometry:
//	  page0_address: 0
//	  page1_address: 1024
//	  page_size: 1024
//	  erase_unit_size: 1024
//	  word_size: 4
//	  index_size: 2
//
// Missing keys keep their defaults. The decoded file is checked against an
// embedded CUE schema (schema.cue) for field ranges, then by
// eeprom.Config.Validate for the page arithmetic.
package config
