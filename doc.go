// Package audiounlock decodes encrypted music containers into plain,
// tagged audio and orchestrates that work over many inputs at once.
//
// Supported containers:
//
//   - NCM (.ncm): NetEase Cloud Music. Carries metadata and a cover image,
//     which are embedded into the output as ID3v2 or FLAC tags.
//   - QMC (.qmc3, .qmcflac): QQ Music static-mask files. No metadata; the
//     output keeps the input's base name.
//
// # Quick Start
//
// Decoding a single file:
//
//	raw, _ := os.ReadFile("song.ncm")
//	payload, err := audiounlock.Decode("song.ncm", raw)
//	if err != nil {
//		log.Fatal(err)
//	}
//	name, _ := audiounlock.OutputName("song.ncm", payload)
//	os.WriteFile(name, payload.Audio, 0o644)
//
// # Batch
//
// Pool decodes files in parallel on a fixed number of workers and returns
// when every input has been attempted:
//
//	pool := audiounlock.NewPool(
//		audiounlock.WithWorkers(4),
//		audiounlock.WithSink(audiounlock.NewDirSink("out")),
//	)
//	summary, err := pool.Run(ctx, "a.ncm", "b.qmcflac")
//
// # Interactive
//
// Session accepts submissions without blocking and tracks each one as a
// Task that moves from Decrypting to Finished or Error exactly once:
//
//	s := audiounlock.NewSession()
//	defer s.Close()
//	ids, _ := s.Submit(audiounlock.FileSource("a.ncm"))
//	_ = s.Wait(ctx)
//	task, _ := s.Task(ids[0])
//
// # Errors
//
// Every per-input failure is a *DecodeError. Use errors.Is with ErrFormat,
// ErrKey, ErrMetadata, ErrImageFormat, ErrTagBuild, ErrTagWrite, ErrIO or
// ErrName to branch on its kind. A failure only ever affects its own task.
//
// # Command
//
// cmd/audiounlock wraps Pool for batch runs and adds two long-running
// modes: "watch" decodes files as they appear in a directory, and "serve"
// exposes a Session over HTTP with a WebSocket event stream. Batch runs
// can be recorded to a SQLite ledger with --ledger.
package audiounlock
