// Package rates implements the model → {input,output} price-per-1K-tokens
// table and the cost formula, generalized from a provider-keyed pricing
// map to a flat model-keyed table. Loading overrides from a file is left
// to the caller; this package only merges an already-parsed map.
package rates
