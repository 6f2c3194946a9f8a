package hcl

import (
	"testing"

	"codegraph/internal/extractor"
)

func extract(t *testing.T, source string) *extractor.FileRecord {
	t.Helper()
	rec, err := New().Extract("main.tf", []byte(source))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return rec
}

func TestExtractBlocks(t *testing.T) {
	rec := extract(t, `resource "aws_instance" "web" {
  ami = "ami-123"
}

data "aws_ami" "ubuntu" {
  most_recent = true
}

variable "region" {
  default = "us-east-1"
}

output "instance_ip" {
  value = aws_instance.web.public_ip
}

provider "aws" {}
`)

	wants := []struct {
		name, kind string
		line       int
	}{
		{"resource.aws_instance.web", "resource", 1},
		{"data.aws_ami.ubuntu", "data", 5},
		{"variable.region", "variable", 9},
		{"output.instance_ip", "output", 13},
		{"provider.aws", "provider", 17},
	}
	if len(rec.Definitions) != len(wants) {
		t.Fatalf("got %d definitions, want %d: %+v", len(rec.Definitions), len(wants), rec.Definitions)
	}
	for i, w := range wants {
		d := rec.Definitions[i]
		if d.Name != w.name || d.Kind != w.kind || d.StartLine != w.line {
			t.Errorf("definition %d: got (%s, %s, line %d), want (%s, %s, line %d)",
				i, d.Name, d.Kind, d.StartLine, w.name, w.kind, w.line)
		}
	}
}

func TestModuleSourceProducesImport(t *testing.T) {
	rec := extract(t, `module "vpc" {
  source = "./modules/vpc"
}

module "registry" {
  source = "terraform-aws-modules/vpc/aws"
}
`)

	if len(rec.Imports) != 2 {
		t.Fatalf("got %d imports, want 2: %+v", len(rec.Imports), rec.Imports)
	}
	if rec.Imports[0].Specifier != "./modules/vpc" {
		t.Errorf("got specifier %q, want ./modules/vpc", rec.Imports[0].Specifier)
	}
	if rec.Imports[1].Specifier != "terraform-aws-modules/vpc/aws" {
		t.Errorf("got specifier %q, want the registry path recorded verbatim", rec.Imports[1].Specifier)
	}
}

func TestNestedBlocksProduceNoSeparateNodes(t *testing.T) {
	rec := extract(t, `resource "aws_instance" "web" {
  lifecycle {
    create_before_destroy = true
  }
}
`)
	if len(rec.Definitions) != 1 {
		t.Fatalf("expected only the containing resource block as a definition, got %+v", rec.Definitions)
	}
}

func TestParseErrorIsReported(t *testing.T) {
	e := New()
	rec, err := e.Extract("broken.tf", []byte(`resource "x" {`))
	if err == nil && rec != nil && len(rec.Definitions) > 0 {
		t.Fatalf("expected a parse error or an empty record for malformed input, got %+v", rec)
	}
}

var _ extractor.Extractor = (*Extractor)(nil)
