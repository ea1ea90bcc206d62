package types

// Observer -> Bot
// Stop: {}
//   finish the current decision cycle, return home, end the run
//
// GetStatus: {}

// Bot -> Observer
// Snapshot:
//   version: number
//   status: { session, match_id, turn, played, completed, failed, last_error }
//   event: { type, at, match_id, turn, initial, action, probability,
//            legal: string[], matchup: { self, self_health, opponent, opponent_health },
//            outcome, error } // absent on the snapshot sent at join
//
// Status:
//   version: number
//   status: as above
//   clients: number
//
// Error:
//   error: string
