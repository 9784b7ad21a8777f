package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const trioVCF = `##fileformat=VCFv4.2
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=GQ,Number=1,Type=Integer,Description="Genotype Quality">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	child	dad	mum	other
1	700	rs700	C	T	50	PASS	.	GT:GQ	0/1:99	0/0:99	0/1:99	0/1:99
1	1000	rs1000	A	G	50	PASS	.	GT:GQ	0/1:99	0/1:99	0/0:99	0/0:99
1	1200	rs1200	A	C	50	PASS	.	GT:GQ	1/1:99	0/1:99	0/1:99	0/0:99
1	1300	rs1300	G	T	50	PASS	.	GT:GQ	0/1:5	0/1:99	0/0:99	0/1:99
`

const trioPED = `FAM1 child dad mum 1 2
FAM1 dad 0 0 1 1
FAM1 mum 0 0 2 1
`

const gnomadVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
1	1000	.	A	G	.	PASS	AF=0.1;AF_POPMAX=0.2;POPMAX=AFR
1	1200	.	A	C	.	PASS	AF=0.3;AF_POPMAX=0.4;POPMAX=EAS
`

// execute runs the root command with fresh global config.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	a := &app{logger: zap.NewNop()}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFixtures(t *testing.T) (dir, vcfPath, pedPath string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("HOME", dir)
	vcfPath = filepath.Join(dir, "trio.vcf")
	pedPath = filepath.Join(dir, "trio.ped")
	require.NoError(t, os.WriteFile(vcfPath, []byte(trioVCF), 0o644))
	require.NoError(t, os.WriteFile(pedPath, []byte(trioPED), 0o644))
	return dir, vcfPath, pedPath
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRun_ExitCodes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"--version"}, ExitSuccess},
		{"help", []string{"--help"}, ExitSuccess},
		{"unknown flag", []string{"phase", "--bogus"}, ExitUsage},
		{"missing required flags", []string{"phase", "-v", "1:1000-A/G"}, ExitUsage},
		{"bad variant", []string{"phase", "-i", "x.vcf", "-p", "x.ped", "-s", "a", "-v", "chrX:1-A/G"}, ExitUsage},
		{"missing input", []string{"phase", "-i", "nope.vcf", "-p", "nope.ped", "-s", "a", "-v", "1:1-A/G"}, ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()
			assert.Equal(t, tt.want, run(tt.args))
		})
	}
}

func TestPhaseCommand(t *testing.T) {
	dir, vcfPath, pedPath := writeFixtures(t)
	outPath := filepath.Join(dir, "out.tsv")

	_, err := execute(t, "phase", "-i", vcfPath, "-p", pedPath, "-s", "child",
		"-v", "1:1000-A/G", "--flanks", "500", "--gq", "20", "-o", outPath)
	require.NoError(t, err)

	lines := readLines(t, outPath)
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "#"), "invocation comment")
	assert.Equal(t, "#CHROM\tPOS\tID\tREF\tALT\tHAP\tN_IN_PHASE\tN_COMPAT\tchild\tOTHER_N_ALLELES\tALT_MAF", lines[1])
	assert.Equal(t, "1\t700\trs700\tC\tT\tC\t1\t1\tC|T\t2\t0.5", lines[2])
	assert.Equal(t, "1\t1000\trs1000|INDEX\tA\tG\tG\t1\t1\tG|A\t2\t0", lines[3])
	assert.Equal(t, "1\t1200\trs1200\tA\tC\tC\t1\t1\tC|C\t2\t0", lines[4])
	// 1300 fails GQ for the child, so it carries no admissible ALT
}

func TestPhaseCommand_ConfigDefaults(t *testing.T) {
	dir, vcfPath, pedPath := writeFixtures(t)
	cfgPath := filepath.Join(dir, "vibe-hap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("flanks: 100\noutput_alleles: true\n"), 0o644))
	outPath := filepath.Join(dir, "out.tsv")

	_, err := execute(t, "--config", cfgPath, "phase", "-i", vcfPath, "-p", pedPath,
		"-s", "child", "-v", "1:1000-A/G", "-o", outPath)
	require.NoError(t, err)

	lines := readLines(t, outPath)
	require.Len(t, lines, 3, "only the index row falls inside 100bp")
	assert.Contains(t, lines[1], "child_Allele_1\tchild_Allele_2")
}

func TestPhaseCommand_EnvOverride(t *testing.T) {
	dir, vcfPath, pedPath := writeFixtures(t)
	require.NoError(t, os.WriteFile(pedPath, []byte(trioPED+"FAM2 other 0 0 1 1\n"), 0o644))
	t.Setenv("VIBE_HAP_MAX_NO_CALLS", "0")
	t.Setenv("VIBE_HAP_FILTER_GQ", "20")
	outPath := filepath.Join(dir, "out.tsv")

	_, err := execute(t, "phase", "-i", vcfPath, "-p", pedPath, "-s", "child", "-s", "other",
		"-v", "1:1000-A/G", "--flanks", "500", "-o", outPath)
	require.NoError(t, err)

	var positions []string
	for _, l := range readLines(t, outPath)[2:] {
		positions = append(positions, strings.Split(l, "\t")[1])
	}
	// 1300 has a low-GQ no-call for child
	assert.Equal(t, []string{"700", "1000", "1200"}, positions)
}

func TestFreqDBImportAndPhase(t *testing.T) {
	dir, vcfPath, pedPath := writeFixtures(t)
	gnomadPath := filepath.Join(dir, "gnomad.vcf")
	require.NoError(t, os.WriteFile(gnomadPath, []byte(gnomadVCF), 0o644))
	dbPath := filepath.Join(dir, "freq", "gnomad")

	out, err := execute(t, "freqdb", "import", "-o", dbPath, gnomadPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 alleles")

	out, err = execute(t, "freqdb", "info", dbPath+".duckdb")
	require.NoError(t, err)
	assert.Equal(t, "population: POPMAX\nalleles: 2\nsource: "+gnomadPath+" (2 alleles)\n", out)

	// re-importing the same file is a no-op
	out, err = execute(t, "freqdb", "import", "-o", dbPath, gnomadPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 alleles")

	outPath := filepath.Join(dir, "out.tsv")
	_, err = execute(t, "phase", "-i", vcfPath, "-p", pedPath, "-s", "child",
		"-v", "1:1000-A/G", "--flanks", "500", "-g", dbPath+".duckdb",
		"--min-other-allele-freq", "0.01", "-o", outPath)
	require.NoError(t, err)

	lines := readLines(t, outPath)
	assert.True(t, strings.HasSuffix(lines[1], "gnomAD_AF\tgnomAD_AF_POPMAX\tPOPMAX_pop"))
	// 700 has a REF haplotype and no gnomAD record, so it is suppressed;
	// 1300 has an ALT haplotype and no record, so REF counts as common
	require.Len(t, lines, 5)
	assert.True(t, strings.HasSuffix(lines[2], "\t0.1\t0.2\tAFR"), lines[2])
	assert.True(t, strings.HasSuffix(lines[3], "\t0.3\t0.4\tEAS"), lines[3])
	assert.Equal(t, "1\t1300\trs1300\tG\tT\tT\t1\t1\tT|G\t2\t0.5\t.\t.\t.", lines[4])

	// without a minimum frequency the 700 row is written, unannotated
	_, err = execute(t, "phase", "-i", vcfPath, "-p", pedPath, "-s", "child",
		"-v", "1:1000-A/G", "--flanks", "500", "-g", dbPath+".duckdb", "-o", outPath)
	require.NoError(t, err)
	lines = readLines(t, outPath)
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[2], "1\t700\trs700\tC\tT\tC\t"), lines[2])
	assert.True(t, strings.HasSuffix(lines[2], "\t.\t.\t."), lines[2])

	_, err = execute(t, "freqdb", "import", gnomadPath)
	var ue *usageError
	assert.ErrorAs(t, err, &ue)
}

func TestConfigSetGet(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("gnomad:\n  pop: NFE\n"), 0o644))

	out, err := execute(t, "--config", cfgPath, "config", "set", "filter.gq", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "Set filter.gq = 20")

	out, err = execute(t, "--config", cfgPath, "config", "get", "filter.gq")
	require.NoError(t, err)
	assert.Equal(t, "20\n", out)

	out, err = execute(t, "--config", cfgPath, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "gq: 20")
	assert.Contains(t, out, "pop: NFE")
	assert.NotContains(t, out, "flanks", "flag defaults are not config")

	_, err = execute(t, "--config", cfgPath, "config", "get", "no.such.key")
	assert.Error(t, err)
}

func TestConfigValue(t *testing.T) {
	assert.Equal(t, true, configValue("yes"))
	assert.Equal(t, false, configValue("off"))
	assert.Equal(t, int64(20), configValue("20"))
	assert.Equal(t, 0.01, configValue("0.01"))
	assert.Equal(t, "NFE", configValue("NFE"))
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name         string
		debug, quiet bool
		enabled      zapcore.Level
		disabled     zapcore.Level
	}{
		{"default", false, false, zapcore.InfoLevel, zapcore.DebugLevel},
		{"debug", true, false, zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"quiet", false, true, zapcore.WarnLevel, zapcore.InfoLevel},
		{"debug wins", true, true, zapcore.DebugLevel, zapcore.DebugLevel - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := newLogger(tt.debug, tt.quiet)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.disabled))
		})
	}
}
