// Package replacement implements cache-line replacement policies for a
// set-associative cache model.
//
// The main policy is Emissary, a protect-aware LRU. Every line carries a
// recency value and a protection flag. Victim selection prefers the least
// recently used unprotected line. Once more than [PriorityThreshold] lines of
// a set are protected the preference inverts and the least recently used
// protected line is evicted instead, so protection can never starve the
// set. If the preferred class is empty the policy falls back to plain LRU
// over the whole set.
//
// A policy owns only per-line metadata. Tags, data and the decision of which
// ways are empty belong to the host cache, which drives the policy through
// the [Policy] interface:
//
//   - Reset when a set is invalidated out of band.
//   - SelectVictim once per fill decision.
//   - OnAccess for every hit, and for a miss right after victim selection.
//   - OnFill once the new line is installed.
//
// Recency can be kept in one of two encodings. [StackEncoding] stores a rank
// in [0, ways) where 0 is the most recently used line; the ranks of a set are
// always a permutation. [ClockEncoding] stores a timestamp from a per-policy
// tick counter, larger meaning more recent.
//
// How lines earn protection is a [ProtectionRule]. [RecencyRefresh] refreshes
// recency on every access and asks a [Classifier] for the flag.
// [ProtectOnHit] protects lines on read hits and drops protection on misses
// and writebacks.
//
// Policies are created by name through a [Registry]. Hosts build one with
// [NewRegistry] and call [RegisterBuiltins] once at startup.
package replacement
