// Package moderately provides a Go SDK for the Moderately AI platform.
//
// The SDK covers files, datasets, dataset schemas, pipelines, pipeline
// executions, and users. Resource operations hang off a Client, and the
// models they return carry convenience methods so common follow-ups
// (download, refresh, wait) read naturally.
//
// # Basic Usage
//
// Create a client and upload a file:
//
//	ctx := context.Background()
//	client, err := moderately.New(
//	    moderately.WithAPIKey(os.Getenv("MODERATELY_API_KEY")),
//	    moderately.WithTeamID(os.Getenv("MODERATELY_TEAM_ID")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	file, err := client.Files.Upload(ctx, &moderately.FileUploadParams{
//	    Path: "report.pdf",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(file.FileID, file.Status)
//
// Credentials can also come from the environment (MODERATELY_API_KEY,
// MODERATELY_TEAM_ID), a .env file, or a YAML config file via
// WithConfigFile. Explicit options win over every other source.
//
// # Datasets
//
// Datasets wrap tabular data with versioning and schemas:
//
//	dataset, err := client.Datasets.Create(ctx, &moderately.DatasetCreateParams{
//	    Name: "Q3 transactions",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := dataset.UploadData(ctx, &moderately.DataUploadParams{
//	    Path: "transactions.csv",
//	}); err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := dataset.CreateSchemaFromSample(ctx, &moderately.SchemaFromSampleParams{
//	    Path: "transactions.csv",
//	}); err != nil {
//	    log.Fatal(err)
//	}
//
// # Pipelines
//
// Pipeline configuration versions execute with a typed input document and
// can be awaited:
//
//	execution, err := client.PipelineExecutions.ExecuteAndWait(ctx,
//	    &moderately.ExecutionCreateParams{
//	        ConfigurationVersionID: versionID,
//	        Input:                  map[string]any{"query": "refunds"},
//	    },
//	    &moderately.WaitParams{
//	        OnProgress: func(e *moderately.PipelineExecution) {
//	            fmt.Printf("%.0f%%\n", e.Progress())
//	        },
//	    },
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	output, err := execution.Output(ctx)
//
// # Pagination
//
// List operations return a single page; All returns an iterator over every
// item:
//
//	for file, err := range client.Files.All(ctx, nil) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(file.Name)
//	}
//
// # Error Handling
//
// API failures decode into typed errors:
//
//	_, err := client.Files.Retrieve(ctx, "file_missing")
//	var notFound *moderately.NotFoundError
//	if errors.As(err, &notFound) {
//	    fmt.Println("gone:", notFound.RequestID)
//	}
//	var rateLimited *moderately.RateLimitError
//	if errors.As(err, &rateLimited) {
//	    time.Sleep(rateLimited.RetryAfter)
//	}
//
// # MCP
//
// NewMCPServer exposes the platform as Model Context Protocol tools for
// agent hosts:
//
//	server := moderately.NewMCPServer(client)
//	if err := server.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package moderately
