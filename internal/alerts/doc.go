// Package alerts evaluates threshold rules against treatment analysis
// results and delivers webhook notifications when rules fire or resolve.
// Conditions compare across-replicate means ("germinability_pct < 50",
// "time_to_half_germination > 7"); a cooldown per rule and treatment keeps
// flapping lots from spamming the webhooks.
package alerts
