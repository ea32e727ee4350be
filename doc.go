// Package upload provides a client-side file upload manager with retries,
// cancellation and progress reporting.
//
// A Task drives a single upload through a retry state machine:
// queued, uploading, then exactly one of success, error or cancelled.
// Failed attempts are retried with exponential backoff until the retry
// budget is spent. Every state change is published to the task's observers
// as a complete snapshot.
//
// A Manager owns a FIFO queue of tasks and keeps at most a fixed number of
// them uploading at once. Backends plug in through uploadtypes.Transport;
// ready-made transports live under transport/.
//
// Key features:
//   - Concurrency-limited FIFO admission
//   - Exponential backoff retries with a per-task budget
//   - Synchronous cancellation through context.Context
//   - Ordered, panic-isolated snapshot observers
//   - Structured logging via log/slog and optional Prometheus metrics
//
// Example usage:
//
//	m, err := upload.New(transport, upload.WithConcurrency(2))
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	task, err := m.Add(&uploadtypes.Intent{File: p, Folder: "avatars"})
//	if err != nil {
//	    return err
//	}
//	task.Subscribe(func(s uploadtypes.State) {
//	    fmt.Println(s.Status, s.Progress)
//	})
//	state, err := task.Wait(ctx)
package upload
