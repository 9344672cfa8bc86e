package types

// Client -> Server
// create: {} (connection must be host-capable)
//
// join:
//   code: string
//   name: string
//
// start:
//   questions: [{ prompt: string, options: string[4],
//                 correctIndex: 0..3, timeLimitSeconds: int }]
//
// answer:
//   index: 0..3
//
// advance: {}
//
// end: {}

// Server -> Client
// SessionCreated:
//   code: string
//
// Lobby:
//   lobby: { code, count, players: [{id, name, score}] }
//
// Question: (identical for players and host; correct option never sent)
//   question: { index (1-based), total, prompt, options[4],
//               timeLimitSeconds, code }
//
// Reveal:
//   reveal: { index, total, correctIndex, countsPerOption[4],
//             leaderboard: top 10 of [{name, score, rank}] }
//
// Result: (sent to exactly one player)
//   result: { correct: bool, yourScore, yourRank }
//
// GameOver:
//   gameOver: { leaderboard: top 20 of [{name, score, rank}] }
//
// SessionClosed: {} (host disconnected; the session is gone)
//
// Error:
//   error: string
