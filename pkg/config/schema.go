package config

// Schema is the JSON schema for validating configuration files
const Schema = `{
    "$schema": "http://json-schema.org/draft-07/schema#",
    "type": "object",
    "additionalProperties": false,
    "properties": {
        "vault_path": {
            "type": "string",
            "minLength": 1,
            "description": "File holding the encrypted connection profiles"
        },
        "log_level": {
            "type": "string",
            "enum": ["debug", "info", "warn", "error"]
        },
        "log_format": {
            "type": "string",
            "enum": ["json", "console"]
        },
        "page_size": {
            "type": "integer",
            "minimum": 1,
            "maximum": 1000
        },
        "presign_ttl_seconds": {
            "type": "integer",
            "minimum": 1,
            "maximum": 604800,
            "description": "Lifetime of presigned download links"
        },
        "delete_mode": {
            "type": "string",
            "enum": ["abort", "continue"]
        },
        "probe_concurrency": {
            "type": "integer",
            "minimum": 1
        },
        "retry": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
                "max_attempts": {
                    "type": "integer",
                    "minimum": 1
                },
                "initial_delay_ms": {
                    "type": "integer",
                    "minimum": 0
                },
                "max_delay_ms": {
                    "type": "integer",
                    "minimum": 0
                }
            }
        }
    }
}`
