// Package normalize turns raw collector records into canonical, deduplicated
// content items.
//
// Normalization is pure: the same raw record always yields the same item and
// the same fingerprint. Records that match no tracked title, or are empty
// after trimming, are rejected with a reason instead of an error.
package normalize
