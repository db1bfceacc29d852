// Package game runs blackjack rounds and sequences them into sessions.
//
// # Rounds
//
// A Round moves through Betting, Dealt, PlayerTurn, DealerTurn and Settled.
// It may leave Betting or PlayerTurn early by saving, which writes the
// session's single GameState and closes the round. Every deal and hit
// rewrites the GameState so a crash loses at most the action in flight. The
// dealer's turn runs to completion without suspending.
//
// Settlement appends a RoundRecord, clears the GameState and updates the
// session's money and round count through Store.Atomic.
//
// # Sessions
//
// Tournament sessions play a fixed number of rounds and are scored on the
// leaderboard once complete. Free-play sessions continue until the player
// declines another round, which is scored, or goes broke, which is not. A
// broke tournament is not scored either.
//
// # Driving play
//
// Service.Play runs a session interactively against a Prompter. The
// step-wise calls PlaceBet, Hit, Stand, Save and Quit rebuild the round from
// the stored GameState on every call and suit request/response transports.
// Both serialise work per session.
package game
