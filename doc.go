/*
Package domaindetect resolves structural domain annotations for protein chains.

Given amino-acid chains and a library of known domains (variable, constant, hinge...),
the engine collects candidate matches from an alignment search, filters and scores them
under a significance regime, resolves overlapping candidates into one non-overlapping
ordered partition per chain and certifies that partition before it is handed to peptide
construction or mutation scanning.

# Architecture

The core lives in pkg/domain (model, configuration, errors) and pkg/session (the
lifecycle INIT -> LIBRARY_LOADED -> HITS_LOADED -> RESOLVED -> CERTIFIED). Everything that
touches the outside world is a port in pkg/ports with adapters in pkg/adapters:
domain libraries (file, loam), aligners (process, memory, cached), hit caches (memory,
file, sqlite, redis) and transports (http, mcp).

# Usage

	det, err := domaindetect.New("./library.yaml",
		domaindetect.WithAligner(myAligner),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer det.Close()

	snap, err := det.Annotate(ctx, chains)
	if err != nil {
		log.Fatal(err)
	}
	for _, res := range snap.Results {
		for _, a := range res.Assignments {
			fmt.Println(res.Chain.ID, a.DomainID, a.Start, a.End)
		}
	}

Sessions can also be driven step by step through Detector.Manager, which is what the
REST and MCP servers do.
*/
package domaindetect
