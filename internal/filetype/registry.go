package filetype

// registry is the internal list of file types the platform recognizes.
// Dataset ingestion accepts the csv and spreadsheet entries; the rest exist
// for classification of general file storage.
var registry = []Type{
	{
		MIME:       "text/csv",
		Extensions: []string{".csv"},
		Kind:       KindCSV,
	},
	{
		MIME:       "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Extensions: []string{".xlsx"},
		Kind:       KindSpreadsheet,
	},
	{
		MIME:       "application/vnd.ms-excel",
		Extensions: []string{".xls"},
		Kind:       KindSpreadsheet,
	},
	{
		MIME:       "application/pdf",
		Extensions: []string{".pdf"},
		Kind:       KindDocument,
	},
	{
		MIME:       "application/msword",
		Extensions: []string{".doc"},
		Kind:       KindDocument,
	},
	{
		MIME:       "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Extensions: []string{".docx"},
		Kind:       KindDocument,
	},
	{
		MIME:       "text/plain",
		Extensions: []string{".txt", ".log"},
		Kind:       KindText,
	},
	{
		MIME:       "text/markdown",
		Extensions: []string{".md", ".markdown"},
		Kind:       KindText,
	},
	{
		MIME:       "text/tab-separated-values",
		Extensions: []string{".tsv"},
		Kind:       KindData,
	},
	{
		MIME:       "application/json",
		Extensions: []string{".json"},
		Kind:       KindData,
	},
	{
		MIME:       "application/x-ndjson",
		Extensions: []string{".ndjson", ".jsonl"},
		Kind:       KindData,
	},
	{
		MIME:       "application/vnd.apache.parquet",
		Extensions: []string{".parquet"},
		Kind:       KindData,
	},
	{
		MIME:       "image/png",
		Extensions: []string{".png"},
		Kind:       KindImage,
	},
	{
		MIME:       "image/jpeg",
		Extensions: []string{".jpg", ".jpeg"},
		Kind:       KindImage,
	},
	{
		MIME:       "image/gif",
		Extensions: []string{".gif"},
		Kind:       KindImage,
	},
	{
		MIME:       "image/webp",
		Extensions: []string{".webp"},
		Kind:       KindImage,
	},
}
