// Package config provides configuration types and loading for entityd.
//
// A configuration file is YAML (.yaml, .yml) or JSON (anything else):
//
//	server:
//	  port: 8080
//	  basePath: /headless-test/v1.0
//	store:
//	  name: entities
//	  scope: singleton      # or "request"
//	  maxPageSize: 500
//	log:
//	  level: info
//	  format: text
//	seed:
//	  inline:
//	    - {id: 1, name: first}
//	  files:
//	    - seed/**/*.yaml
//	  watch: true
//
// ${VAR} and ${VAR:-default} references are expanded from the environment
// before parsing. The decoded document is checked against an embedded JSON
// Schema and then by Validate. ApplyEnv layers ENTITYD_* variables on top.
package config
