// Package core hosts spreadsheet import sessions around the wizard controller.
//
// The package holds everything between the transport layer and the wizard
// state machine. It can be used by the HTTP API, the CLI, or tests without
// modification.
//
// # Sessions
//
// [Service.Create] or [Service.Start] open a [Session] for a target field set.
// Each session owns one [wizard.Controller] and acts as its notifier and
// stepper:
//
//	svc := core.NewService(provider, store.NewMemory(), core.NewSessionLimiter(5), core.ServiceOptions{
//	    MaxRecords:   10000,
//	    SelectHeader: true,
//	})
//	snap, err := svc.Start(ctx, "contacts", workbook.File{Name: "people.csv", Data: data})
//
// Calls on one session are serialized. A call that finds the session in use
// fails with [ErrSessionBusy] rather than queueing behind it. Sessions idle
// longer than [ServiceOptions.SessionTTL] are removed by [Service.Run].
//
// # Errors
//
// Recoverable wizard errors (row limit, empty sheet, hook failures) leave the
// session on its current step. They are queued as notifications and returned
// together with a fresh [Snapshot]. Any other error returns a nil snapshot.
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - IMP001-IMP007: Wizard step errors
//   - VAL001-VAL003: Value format errors
//   - FILE001-FILE005: Upload file errors
//   - SES001-SES005: Session errors
//   - DB001-DB007: Storage errors
//
// # Submitting
//
// [Service.Submit] moves the session to the loading step, validates every
// record against the target fields, runs the configured hooks, and saves the
// valid rows through the [store.Store]. Rejected rows are counted and kept on
// the session's [SubmitResult]. A storage failure leaves the session loading
// and is reported in [Snapshot.Error].
package core
