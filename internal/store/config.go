package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"physician-scheduler/internal/catalog"
	"physician-scheduler/internal/models"
	"physician-scheduler/internal/registry"
)

// ConfigVersion is the schema version for catalog and registry files.
const ConfigVersion = 1

type catalogFile struct {
	Version    int                    `json:"version"`
	Categories []*models.TaskCategory `json:"categories"`
	Tasks      []*models.Task         `json:"tasks"`
	Links      []linkRecord           `json:"links,omitempty"`
}

type linkRecord struct {
	Main string `json:"main"`
	Call string `json:"call"`
}

type registryFile struct {
	Version        int                    `json:"version"`
	Physicians     []*models.Physician    `json:"physicians"`
	Unavailability []unavailabilityRecord `json:"unavailability,omitempty"`
}

type unavailabilityRecord struct {
	PhysicianID string `json:"physician_id"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

func EncodeCatalog(w io.Writer, c *catalog.Catalog) error {
	out := catalogFile{
		Version:    ConfigVersion,
		Categories: c.Categories(),
		Tasks:      c.Tasks(),
	}
	for _, edge := range c.Links() {
		out.Links = append(out.Links, linkRecord{Main: edge[0], Call: edge[1]})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// DecodeCatalog reads a catalog file and rebuilds the catalog through its
// registration methods, so schema problems surface as SerializationError and
// semantic ones, duplicate codes or dangling links, as ConfigurationError.
func DecodeCatalog(r io.Reader) (*catalog.Catalog, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var in catalogFile
	if err := dec.Decode(&in); err != nil {
		return nil, &models.SerializationError{Field: "catalog", Msg: err.Error(), Err: err}
	}
	if in.Version != ConfigVersion {
		return nil, models.NewSerializationError("version", "unsupported catalog version %d, want %d", in.Version, ConfigVersion)
	}

	c := catalog.New()
	for _, cat := range in.Categories {
		if err := c.AddCategory(cat); err != nil {
			return nil, err
		}
	}
	for _, t := range in.Tasks {
		if err := c.AddTask(t); err != nil {
			return nil, err
		}
	}
	for _, l := range in.Links {
		if err := c.Link(l.Main, l.Call); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func EncodeRegistry(w io.Writer, r *registry.Registry) error {
	out := registryFile{
		Version:    ConfigVersion,
		Physicians: r.Physicians(),
	}
	for _, p := range r.Physicians() {
		for _, span := range r.Unavailability(p.ID) {
			out.Unavailability = append(out.Unavailability, unavailabilityRecord{
				PhysicianID: p.ID,
				Start:       models.FormatDate(span.Start),
				End:         models.FormatDate(span.End),
			})
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// DecodeRegistry mirrors DecodeCatalog for the physician roster.
func DecodeRegistry(rd io.Reader) (*registry.Registry, error) {
	dec := json.NewDecoder(rd)
	dec.DisallowUnknownFields()
	var in registryFile
	if err := dec.Decode(&in); err != nil {
		return nil, &models.SerializationError{Field: "registry", Msg: err.Error(), Err: err}
	}
	if in.Version != ConfigVersion {
		return nil, models.NewSerializationError("version", "unsupported registry version %d, want %d", in.Version, ConfigVersion)
	}

	r := registry.New()
	for _, p := range in.Physicians {
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	for i, u := range in.Unavailability {
		start, err := models.ParseDate(u.Start)
		if err != nil {
			return nil, &models.SerializationError{Field: fmt.Sprintf("unavailability[%d].start", i), Msg: err.Error(), Err: err}
		}
		end, err := models.ParseDate(u.End)
		if err != nil {
			return nil, &models.SerializationError{Field: fmt.Sprintf("unavailability[%d].end", i), Msg: err.Error(), Err: err}
		}
		if err := r.AddUnavailability(u.PhysicianID, models.DateSpan{Start: start, End: end}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func SaveCatalog(path string, c *catalog.Catalog) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeCatalog(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadCatalog(path string) (*catalog.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeCatalog(f)
}

func SaveRegistry(path string, r *registry.Registry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeRegistry(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadRegistry(path string) (*registry.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeRegistry(f)
}
