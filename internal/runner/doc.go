// Package runner is the batch request engine of batchfire.
//
// It is built from three pieces, leaf first:
//
//   - An [Executor] performs one request and converts every failure mode
//     into a settled [Outcome]. [HTTPExecutor] is the HTTP GET implementation
//     governed by an [httpclient.Policy].
//   - A [Coordinator] launches a fixed number of executors, ids 1..N, and
//     waits for all of them to settle before returning a [BatchResult].
//   - A [Driver] repeats batches back to back until its context is cancelled
//     (or MaxBatches is reached), reporting each outcome and batch to a
//     [Reporter].
//
// # Basic Usage
//
//	client := httpclient.NewClient(policy, 10)
//	exec, err := runner.NewHTTPExecutor(client, builder, policy)
//	if err != nil {
//		return err
//	}
//	d, err := runner.New(runner.Options{
//		Concurrency: 10,
//		Executor:    exec,
//		Reporter:    reporter,
//	})
//	if err != nil {
//		return err
//	}
//	result, err := d.Run(ctx)
//
// # Failure Classification
//
// A request fails with reason "Timeout" when the policy deadline expires,
// "HTTP <code>" when the target answers with a client or server error, or
// with the transport error text otherwise (DNS, refused, reset, body read).
// None of these stop the batch or the driver.
//
// A request cut short because the run itself was stopped is neither a
// success nor a failure: it is marked [Outcome.Aborted] with reason
// "Aborted", and its batch reports [BatchResult.Interrupted]. Aborted
// requests are kept out of [Result.Errors] and interrupted batches out of
// [Result.Batches].
//
// # Ordering
//
// Within a batch requests are launched in id order and may complete in any
// order; [BatchResult.Outcomes] is ordered by id. Batches never overlap.
package runner
