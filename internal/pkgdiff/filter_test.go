package pkgdiff

import (
	"reflect"
	"testing"
)

func TestName(t *testing.T) {
	tests := map[string]string{
		"bash-4.3.33-1.fc22.x86_64":           "bash",
		"python-libs-2.7.9-6.fc22.x86_64":     "python-libs",
		"kernel-core-1:4.0.4-301.fc22.noarch": "kernel-core",
		"foo-1.0":                             "foo-1.0",
		"plain":                               "plain",
	}
	for in, want := range tests {
		if got := Name(in); got != want {
			t.Errorf("Name(%q) = %q, expected %q", in, got, want)
		}
	}
}

func TestResult_Filter(t *testing.T) {
	res := &Result{
		Changed: []Change{
			{From: "kernel-4.0.4-301.fc22.x86_64", To: "kernel-4.0.5-300.fc22.x86_64"},
			{From: "bash-4.3.33-1.fc22.x86_64", To: "bash-4.3.39-1.fc22.x86_64"},
		},
		Added:   []string{"kernel-modules-4.0.5-300.fc22.x86_64", "nano-2.4.1-1.fc22.x86_64"},
		Removed: []string{"python-libs-2.7.9-6.fc22.x86_64"},
	}

	tests := []struct {
		name    string
		include []string
		exclude []string
		want    *Result
	}{
		{
			name: "No filters",
			want: res,
		},
		{
			name:    "Include kernel",
			include: []string{"kernel*"},
			want: &Result{
				Changed: []Change{res.Changed[0]},
				Added:   []string{"kernel-modules-4.0.5-300.fc22.x86_64"},
			},
		},
		{
			name:    "Exclude kernel",
			exclude: []string{"kernel*"},
			want: &Result{
				Changed: []Change{res.Changed[1]},
				Added:   []string{"nano-2.4.1-1.fc22.x86_64"},
				Removed: []string{"python-libs-2.7.9-6.fc22.x86_64"},
			},
		},
		{
			name:    "Full NEVRA",
			include: []string{"*.fc22.x86_64"},
			exclude: []string{"kernel*", "bash", "nano"},
			want: &Result{
				Removed: []string{"python-libs-2.7.9-6.fc22.x86_64"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := res.Filter(tt.include, tt.exclude)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter = %+v, expected %+v", got, tt.want)
			}
		})
	}
}
