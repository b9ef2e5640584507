// Package scoring ranks destinations and estimates trip costs with
// interchangeable strategies.
//
// Every strategy implements the same single-method contract: given a
// user's Preferences and Profile and one Candidate it returns a number.
// Recommendation strategies return a match score on a 0-100 scale;
// estimation strategies return an estimated cost. Strategies are pure and
// never touch the store, so the caller materialises inputs first, usually
// with FromEntities and TripCandidate.
//
//	reg := scoring.DefaultRegistry(config.DefaultSettings())
//	hybrid, _ := reg.Get("hybrid")
//	for _, r := range scoring.Rank(hybrid, prefs, profile, candidates) {
//		fmt.Println(r.Position, r.Candidate.Destination, r.Score)
//	}
//
// A strategy that lacks an input it depends on, such as a candidate whose
// climate is unknown, scores it Neutral instead of failing the ranking.
package scoring
