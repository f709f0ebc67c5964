// Package schema reads guide documents and checks them before they reach the engine.
//
// A guide document is YAML or JSON:
//
//	id: micro-credit
//	title: Demande de micro-crédit
//	service_type: microfinance
//	steps:
//	  - title: Identité
//	    fields:
//	      - name: full_name
//	        type: text
//	        required: true
//	      - name: cin_scan
//	        type: file
//	        accept: .pdf,.jpg
//
// ParseGuide validates the raw document against an embedded JSON Schema, converts it
// into a domain.Guide and runs the semantic checks of ValidateGuide. Every problem
// found is reported; errors are *AggregateError values holding *ValidationError items.
package schema
