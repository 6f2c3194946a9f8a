package resolver

import "codegraph/internal/extractor"

// ReexportEntry is one re-export statement inside a barrel file.
type ReexportEntry struct {
	// Name is "" for wildcard re-exports.
	Name       string
	TargetFile string
	Wildcard   bool
}

// BarrelMap is, per file, the list of re-exports it contains plus enough
// information to classify it as a barrel.
type BarrelMap struct {
	reexports   map[string][]ReexportEntry
	defineCount map[string]int
	records     map[string]*extractor.FileRecord
}

// BuildBarrelMap computes the barrel map from every file's extracted
// records and a Resolver used to resolve each re-export's specifier to a
// target file.
func BuildBarrelMap(records map[string]*extractor.FileRecord, r *Resolver) *BarrelMap {
	bm := &BarrelMap{
		reexports:   make(map[string][]ReexportEntry),
		defineCount: make(map[string]int),
		records:     records,
	}

	for path, rec := range records {
		bm.defineCount[path] = len(rec.Definitions)
		for _, imp := range rec.Imports {
			switch imp.Kind {
			case extractor.ImportReexport:
				target, _ := r.Resolve(imp.Specifier, path)
				bm.reexports[path] = append(bm.reexports[path], ReexportEntry{
					Name: imp.Name, TargetFile: target,
				})
			case extractor.ImportReexportWildcard:
				target, _ := r.Resolve(imp.Specifier, path)
				bm.reexports[path] = append(bm.reexports[path], ReexportEntry{
					TargetFile: target, Wildcard: true,
				})
			}
		}
	}
	return bm
}

// IsBarrel reports whether path's re-export count is at least its own
// definition count.
func (bm *BarrelMap) IsBarrel(path string) bool {
	return len(bm.reexports[path]) >= bm.defineCount[path]
}

// Reexports returns path's re-export entries.
func (bm *BarrelMap) Reexports(path string) []ReexportEntry {
	return bm.reexports[path]
}

// defines reports whether path's extracted record defines or exports
// name.
func (bm *BarrelMap) defines(path, name string) bool {
	rec, ok := bm.records[path]
	if !ok {
		return false
	}
	for _, d := range rec.Definitions {
		if d.Name == name {
			return true
		}
	}
	for _, e := range rec.Exports {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Resolve follows re-export chains starting at barrel file `from` looking
// for name: named re-exports matching name are tried first, then wildcard
// re-exports. A visited set prevents cycles; on revisitation resolution
// returns no result, never an error. The deepest found definition file is
// returned.
func (bm *BarrelMap) Resolve(from, name string) (string, bool) {
	return bm.resolve(from, name, make(map[string]bool))
}

func (bm *BarrelMap) resolve(from, name string, visited map[string]bool) (string, bool) {
	if visited[from] {
		return "", false
	}
	visited[from] = true

	for _, re := range bm.reexports[from] {
		if re.Wildcard || re.Name != name {
			continue
		}
		if bm.defines(re.TargetFile, name) {
			return re.TargetFile, true
		}
		if bm.IsBarrel(re.TargetFile) {
			if found, ok := bm.resolve(re.TargetFile, name, visited); ok {
				return found, true
			}
		}
	}

	for _, re := range bm.reexports[from] {
		if !re.Wildcard {
			continue
		}
		if bm.defines(re.TargetFile, name) {
			return re.TargetFile, true
		}
		if found, ok := bm.resolve(re.TargetFile, name, visited); ok {
			return found, true
		}
	}

	return "", false
}
