// Package webhooks contains Instagram webhook verification and dispatch.
//
// Deliveries are authenticated with the X-Hub-Signature-256 HMAC and
// fanned out into five independent channels (messages, postbacks,
// opt-ins, comments, mentions). Verification is fail-open by default:
// a missing secret, missing signature, or broken comparison lets the
// delivery through. That mirrors the upstream product behavior and is
// flipped to fail-closed with Config.StrictAuth.
package webhooks
