package targets

import (
	"bytes"
	"errors"
	"testing"

	"github.com/albertocavalcante/depview/pkg/fingerprint"
)

func render(t *testing.T, target *Target, index *fingerprint.RootIndex) string {
	t.Helper()
	var buf bytes.Buffer
	if err := target.WriteConfiguration(&buf, fingerprint.NewDataPaths(t.TempDir()), index); err != nil {
		t.Fatalf("WriteConfiguration() error = %v", err)
	}
	return buf.String()
}

func indexFor(s Spec) *fingerprint.RootIndex {
	idx := fingerprint.NewRootIndex()
	idx.Add(s.Type, s.ID, s.Roots()...)
	return idx
}

func TestJavaProductionConfiguration(t *testing.T) {
	spec := Spec{
		ID:               "core",
		Type:             TypeJavaProduction,
		Sources:          []string{"core/src/main/java"},
		GeneratedSources: []string{"build/gen/core"},
		Outputs:          []string{"out/core"},
		Options:          map[string]string{"target": "17", "encoding": "UTF-8"},
		Deps:             []string{"java-production:util", "java-production:api"},
		PackagePrefix:    "com.example",
	}

	got := render(t, NewJavaProduction(spec), indexFor(spec))
	want := `target java-production:core
generated build/gen/core prefix=com.example
source core/src/main/java prefix=com.example
output out/core
option encoding=UTF-8
option target=17
dep java-production:api
dep java-production:util
`
	if got != want {
		t.Errorf("configuration mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestJavaTestsDependOnProduction(t *testing.T) {
	spec := Spec{ID: "core", Type: TypeJavaTests, Sources: []string{"core/src/test/java"}}

	got := render(t, NewJavaTests(spec), indexFor(spec))
	want := `target java-tests:core
source core/src/test/java
dep java-production:core
`
	if got != want {
		t.Errorf("configuration mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestResourcesIgnoreCompilerSettings(t *testing.T) {
	spec := Spec{
		ID:      "web",
		Type:    TypeResources,
		Sources: []string{"web/static"},
		Outputs: []string{"out/web"},
		Options: map[string]string{"filter": "true", "target": "17"},
		Deps:    []string{"java-production:core"},
	}

	got := render(t, NewResources(spec), indexFor(spec))
	want := `target resources:web
source web/static
output out/web
option filter=true
`
	if got != want {
		t.Errorf("configuration mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestConfigurationIgnoresDeclarationOrder(t *testing.T) {
	a := Spec{
		ID:      "core",
		Type:    TypeJavaProduction,
		Sources: []string{"b", "a"},
		Outputs: []string{"o2", "o1", "o1"},
		Deps:    []string{"y", "x"},
	}
	b := Spec{
		ID:      "core",
		Type:    TypeJavaProduction,
		Sources: []string{"a", "b"},
		Outputs: []string{"o1", "o2"},
		Deps:    []string{"x", "y"},
	}

	if render(t, NewJavaProduction(a), indexFor(a)) != render(t, NewJavaProduction(b), indexFor(b)) {
		t.Error("declaration order should not change the configuration")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }

func TestWriteConfigurationError(t *testing.T) {
	spec := Spec{ID: "core", Type: TypeJavaProduction}
	err := NewJavaProduction(spec).WriteConfiguration(failingWriter{}, fingerprint.NewDataPaths(t.TempDir()), indexFor(spec))
	if err == nil {
		t.Fatal("expected write error")
	}
}

func TestTargetIdentity(t *testing.T) {
	target := NewJavaTests(Spec{ID: "core", Type: TypeJavaTests})
	if target.ID() != "core" || target.TypeID() != TypeJavaTests {
		t.Errorf("unexpected identity %s", target)
	}
	if target.String() != "java-tests:core" {
		t.Errorf("String() = %q", target.String())
	}
}
