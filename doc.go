/*
Package wizard drives multi-step administrative application guides.

A guide is an ordered list of steps, each holding typed fields (text, email,
phone, select, file...). The engine loads a guide, walks the user through it
step by step, validates each step before moving forward, saves progress so a
session can be resumed later, and finally submits the collected answers to an
application service which returns a tracking id.

# Usage

	dir, _ := memory.NewDirectory(guide)
	eng := wizard.New(dir, wizard.WithSubmitter(submitter))

	wz, err := eng.Load(ctx, "micro-credit")
	if err != nil {
		log.Fatal(err)
	}

	_ = wz.SetAnswer("full_name", "Ali Ben Salah")
	if !wz.Next() {
		fmt.Println(wz.Errors()) // e.g. map[email:required]
	}

	res, err := wz.Submit(ctx)
	switch {
	case err != nil:
		// backend failure, the session is kept and Submit can be retried
	case !res.Submitted():
		// res.FailedStep holds the first invalid step, res.Errors its errors
	default:
		fmt.Println("tracking id:", res.TrackingID)
	}

# Persistence

Every change is written in the background through a session store (memory,
file, Redis or SQLite adapters). Writes are coalesced so only the newest
snapshot lands. If the store fails the wizard keeps working in memory and
reports Degraded.
*/
package wizard
