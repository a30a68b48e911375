package transfer

import (
	"fmt"

	"github.com/c360/c360cfg/internal/log"
	"github.com/c360/c360cfg/internal/paths"
	"github.com/c360/c360cfg/internal/store"
)

const (
	// transferTool is the object-store client invoked by the scripts.
	transferTool = "s3cmd"

	// identifierArchive is the index artifact shared through the
	// intermediate path.
	identifierArchive = "identifier.parquet"
)

// FinalDocuments are uploaded to the target path after processing.
var FinalDocuments = []string{
	"person.json",
	"organization.json",
	"index.json",
	"event.json",
}

// Input is everything the generator needs.
type Input struct {
	Source       paths.Location
	Intermediate paths.Location
	Target       paths.Location
	Temporary    paths.Location
	Catalog      store.Catalog
}

// Generate builds the download and upload scripts. It never fails: a local
// path or an empty catalog only leaves the matching block out.
func Generate(in Input) Scripts {
	download := newScript(DownloadScriptName)
	upload := newScript(UploadScriptName)

	tmp := in.Temporary.String()
	download.add(fmt.Sprintf("mkdir -p %[1]s%[2]s %[1]s%[3]s %[1]s%[4]s",
		tmp, paths.StagingRaw, paths.StagingParquet, paths.StagingJSON))

	if in.Intermediate.IsRemote() {
		addIndexArtifact(download, upload, tmp, in.Intermediate)
	}
	if in.Source.IsRemote() {
		addSourceEntities(download, tmp, in.Source, in.Catalog)
	}
	if in.Target.IsRemote() {
		addFinalDocuments(upload, tmp, in.Target)
	}

	log.Debug(log.CatScripts, "Generated transfer scripts",
		"download_lines", len(download.Lines),
		"upload_lines", len(upload.Lines),
		"source", in.Source.Kind,
		"intermediate", in.Intermediate.Kind,
		"target", in.Target.Kind)

	return Scripts{Download: *download, Upload: *upload}
}

func addIndexArtifact(download, upload *Script, tmp string, intermediate paths.Location) {
	archive := identifierArchive + ".tgz"
	parquetDir := tmp + paths.StagingParquet

	download.add(
		fmt.Sprintf(`[ -d "%[1]s/" ] && cd %[1]s/ && pwd`, parquetDir),
		fetchLine(parquetDir+paths.Separator, intermediate, archive),
		fmt.Sprintf(`[ -s "%[1]s" ] && tar -xzf %[1]s`, archive),
		fmt.Sprintf(`[ -s "%[1]s" ] && rm %[1]s`, archive),
	)

	upload.add(
		fmt.Sprintf(`[ -d "%[1]s" ] && cd %[1]s`, parquetDir),
		fmt.Sprintf(`[ -d "%[1]s" ] && tar -czf %[2]s %[1]s`, identifierArchive, archive),
		fmt.Sprintf(`[ -s "%[1]s" ] && %[2]s put %[1]s %[3]s`, archive, transferTool, intermediate.Join(archive)),
	)
}

func addSourceEntities(download *Script, tmp string, source paths.Location, catalog store.Catalog) {
	rawDir := tmp + paths.StagingRaw
	download.add(fmt.Sprintf(`[ -d "%[1]s" ] && cd %[1]s && pwd`, rawDir))

	for _, entity := range catalog.Entities {
		var files []string
		switch e := entity.(type) {
		case store.FlatEntity:
			files = e.SourceFiles
		case store.GroupedEntity:
			for _, member := range e.Members {
				files = append(files, member.SourceFiles...)
			}
		}

		for _, file := range files {
			download.add(fetchLine(rawDir, source, file))
		}
	}
}

// fetchLine downloads file into the current directory, only when the
// staging directory the script just changed into exists.
func fetchLine(stagingDir string, from paths.Location, file string) string {
	return fmt.Sprintf(`[ -d "%s" ] && %s get --force %s %s`, stagingDir, transferTool, from.Join(file), file)
}

func addFinalDocuments(upload *Script, tmp string, target paths.Location) {
	jsonDir := tmp + paths.StagingJSON
	upload.add(fmt.Sprintf(`cd %[1]s || { echo "Cannot find %[1]s for uploading final documents."; exit 1; }`, jsonDir))

	for _, doc := range FinalDocuments {
		archive := doc + ".tgz"
		upload.add(
			fmt.Sprintf(`[ -d "%[1]s" ] && tar -czf %[2]s %[1]s`, doc, archive),
			fmt.Sprintf(`[ -s "%[1]s" ] && %[2]s put %[1]s %[3]s`, archive, transferTool, target.Join(archive)),
		)
	}
}
