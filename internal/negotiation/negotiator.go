package negotiation

import (
	"netneg/internal/model"
)

// Negotiate reconciles the server's and the client's advertisements.
//
// Algorithm:
//  1. Drop optional components whose id the other side does not advertise.
//     Each side is pruned against the other side's original list.
//  2. Pair components by id.
//  3. Fail with missing-on-server for every unpaired client component. Only
//     when there are none, fail with missing-on-client for every unpaired
//     server component.
//  4. Validate each pair in both directions; the first failure is recorded.
//  5. Resolve a version for each valid pair: the server's preference if it
//     lies in the overlap, else the client's, else the highest common version.
//  6. Any recorded failure voids the whole result.
//
// The inputs are never modified.
func Negotiate(server, client []model.Component) *Result {
	serverIDs := idSet(server)
	clientIDs := idSet(client)

	server = pruneOptional(server, clientIDs)
	client = pruneOptional(client, serverIDs)

	pairs, serverRest, clientRest := match(server, client)

	if len(clientRest) > 0 {
		return missing(clientRest, FailureMissingOnServer, SideServer)
	}
	if len(serverRest) > 0 {
		return missing(serverRest, FailureMissingOnClient, SideClient)
	}

	agreed := make([]model.NegotiatedComponent, 0, len(pairs))
	failures := make(map[model.ComponentID]*Failure)
	for _, p := range pairs {
		if f := ValidateComponent(p.server, p.client, SideClient); f != nil {
			failures[p.server.ID] = f
			continue
		}
		if f := ValidateComponent(p.client, p.server, SideServer); f != nil {
			failures[p.server.ID] = f
			continue
		}
		agreed = append(agreed, model.NegotiatedComponent{
			ID:      p.server.ID,
			Version: resolveVersion(p.server, p.client),
		})
	}

	if len(failures) > 0 {
		return &Result{Components: []model.NegotiatedComponent{}, Failures: failures}
	}
	return &Result{Success: true, Components: agreed, Failures: failures}
}

// ValidateComponent checks whether left's version constraints can be met by
// right. side names the peer that advertised right and is carried into the
// failure. Returns nil when compatible.
func ValidateComponent(left, right model.Component, side Side) *Failure {
	leftRange, leftOK := left.VersionRange()
	rightRange, rightOK := right.VersionRange()

	if leftOK && !rightOK {
		return checkPreferred(left, right, leftRange, side)
	}
	if rightOK && !leftOK {
		return checkPreferred(right, left, rightRange, side)
	}
	if leftOK && rightOK {
		if leftRange.Overlaps(rightRange) {
			return nil
		}
		return &Failure{
			Code:      FailureRangeNoOverlap,
			Side:      side,
			ID:        left.ID,
			Range:     &leftRange,
			PeerID:    right.ID,
			PeerRange: &rightRange,
		}
	}

	// Neither side constrains the version.
	return nil
}

// checkPreferred validates a range-less component against one that has a range.
// A declared preference always yields a range, so within Negotiate bare never
// has one and only the preferred-version-required branch fires.
func checkPreferred(ranged, bare model.Component, r model.Range, side Side) *Failure {
	if bare.PreferredVersion == nil {
		return &Failure{
			Code:  FailurePreferredVersionRequired,
			Side:  side,
			ID:    ranged.ID,
			Range: &r,
		}
	}
	if !r.Contains(*bare.PreferredVersion) {
		v := *bare.PreferredVersion
		return &Failure{
			Code:    FailurePreferredVersionOutOfRange,
			Side:    side,
			ID:      ranged.ID,
			Range:   &r,
			Version: &v,
		}
	}
	return nil
}

// resolveVersion picks the agreed version of a validated pair.
func resolveVersion(server, client model.Component) *int {
	serverRange, serverOK := server.VersionRange()
	clientRange, clientOK := client.VersionRange()
	if !serverOK || !clientOK {
		// Validation guarantees both or neither; neither means unversioned.
		return nil
	}

	overlap := serverRange.Overlap(clientRange)
	switch {
	case server.PreferredVersion != nil && overlap.Contains(*server.PreferredVersion):
		return model.Opt(*server.PreferredVersion)
	case client.PreferredVersion != nil && overlap.Contains(*client.PreferredVersion):
		return model.Opt(*client.PreferredVersion)
	default:
		return model.Opt(overlap.Max)
	}
}

type pair struct {
	server model.Component
	client model.Component
}

func idSet(components []model.Component) map[model.ComponentID]struct{} {
	ids := make(map[model.ComponentID]struct{}, len(components))
	for _, c := range components {
		ids[c.ID] = struct{}{}
	}
	return ids
}

// pruneOptional returns a fresh slice without the optional components whose
// id is absent from peer.
func pruneOptional(components []model.Component, peer map[model.ComponentID]struct{}) []model.Component {
	out := make([]model.Component, 0, len(components))
	for _, c := range components {
		if _, ok := peer[c.ID]; c.Optional && !ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// match pairs components by id, preserving server order, and returns what
// is left unpaired on each side.
func match(server, client []model.Component) (pairs []pair, serverRest, clientRest []model.Component) {
	byID := make(map[model.ComponentID]model.Component, len(client))
	for _, c := range client {
		byID[c.ID] = c
	}

	matched := make(map[model.ComponentID]struct{}, len(server))
	for _, s := range server {
		c, ok := byID[s.ID]
		if !ok {
			serverRest = append(serverRest, s)
			continue
		}
		pairs = append(pairs, pair{server: s, client: c})
		matched[s.ID] = struct{}{}
	}
	for _, c := range client {
		if _, ok := matched[c.ID]; !ok {
			clientRest = append(clientRest, c)
		}
	}
	return pairs, serverRest, clientRest
}

// missing fails every leftover component with the same structural reason.
func missing(rest []model.Component, code FailureCode, side Side) *Result {
	failures := make(map[model.ComponentID]*Failure, len(rest))
	for _, c := range rest {
		failures[c.ID] = &Failure{Code: code, Side: side, ID: c.ID}
	}
	return &Result{Components: []model.NegotiatedComponent{}, Failures: failures}
}
