package crawlengine

import (
	"bufio"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// fallbackFreeGB is used wherever /proc/meminfo cannot be read (any
// non-Linux host, or a sandboxed one without /proc). It is
// deliberately conservative: better to under-size concurrency on an
// unknown host than to assume memory that isn't there.
const fallbackFreeGB = 2.0

// Sizing is the resolved concurrency plan for one crawl, derived once
// at engine startup from the requested concurrency, host resources,
// and the operator-configured bounds in Config.
type Sizing struct {
	EffectiveConcurrency int
	NumBrowsers          int
	WorkersPerBrowser    int
}

// sizingInputs bundles everything computeSizing needs so the formula
// itself stays a pure function, independent of how CPU count and free
// memory were obtained.
type sizingInputs struct {
	requested           int
	cpus                int
	freeGB              float64
	maxConcurrency      int
	mbPerPage           int
	mbPerBrowser        int
	memoryBufferGB      float64
	pagesPerBrowser     int
	maxBrowsersByMemory int
	// disableResourceChecks skips the CPU/memory-derived ceilings
	// entirely (CRAWL_DISABLE_RESOURCE_CHECKS), leaving requested and
	// maxConcurrency/maxBrowsersByMemory as the only bounds.
	disableResourceChecks bool
	// overrideConcurrency and overrideBrowsers, when positive, pin the
	// resolved values directly (CRAWL_OVERRIDE_CONCURRENCY/_BROWSERS),
	// bypassing every other ceiling including maxConcurrency.
	overrideConcurrency int
	overrideBrowsers    int
}

// computeSizing applies the formulas: maxByMemory from free host
// memory, effectiveConcurrency as the tightest of requested/configured
// bound/CPU-derived/memory-derived ceilings, desiredBrowsers scaling
// with effectiveConcurrency once it's large enough to benefit from
// more than one browser, numBrowsers capped by both CPU count and a
// memory-derived ceiling, and workersPerBrowser spreading
// effectiveConcurrency evenly across whatever numBrowsers came out to.
// An operator override for either value short-circuits its formula
// entirely; disableResourceChecks drops only the CPU/memory ceilings.
func computeSizing(in sizingInputs) Sizing {
	if in.overrideConcurrency > 0 && in.overrideBrowsers > 0 {
		return Sizing{
			EffectiveConcurrency: in.overrideConcurrency,
			NumBrowsers:          in.overrideBrowsers,
			WorkersPerBrowser:    maxInt(1, ceilDiv(in.overrideConcurrency, in.overrideBrowsers)),
		}
	}

	maxByMemory := maxInt(1, int(math.Floor(math.Max(0.5, in.freeGB-in.memoryBufferGB)/(float64(in.mbPerPage)/1024.0))))

	var effectiveConcurrency int
	switch {
	case in.overrideConcurrency > 0:
		effectiveConcurrency = in.overrideConcurrency
	case in.disableResourceChecks:
		effectiveConcurrency = maxInt(1, minInt(in.requested, in.maxConcurrency))
	default:
		effectiveConcurrency = maxInt(1, minInt(in.requested, in.maxConcurrency, 2*in.cpus, maxByMemory))
	}

	var desiredBrowsers int
	if effectiveConcurrency < 4 {
		desiredBrowsers = 1
	} else {
		desiredBrowsers = maxInt(2, ceilDiv(effectiveConcurrency, in.pagesPerBrowser))
	}

	maxBrowsersByMemory := maxInt(1, int(math.Floor(math.Max(0.5, in.freeGB-in.memoryBufferGB)/(float64(in.mbPerBrowser)/1024.0))))
	if in.maxBrowsersByMemory > 0 {
		maxBrowsersByMemory = minInt(maxBrowsersByMemory, in.maxBrowsersByMemory)
	}

	var numBrowsers int
	switch {
	case in.overrideBrowsers > 0:
		numBrowsers = in.overrideBrowsers
	case in.disableResourceChecks:
		numBrowsers = maxInt(1, desiredBrowsers)
		if in.maxBrowsersByMemory > 0 {
			numBrowsers = minInt(numBrowsers, in.maxBrowsersByMemory)
		}
	default:
		numBrowsers = maxInt(1, minInt(desiredBrowsers, in.cpus, maxBrowsersByMemory))
	}
	workersPerBrowser := maxInt(1, ceilDiv(effectiveConcurrency, numBrowsers))

	return Sizing{
		EffectiveConcurrency: effectiveConcurrency,
		NumBrowsers:          numBrowsers,
		WorkersPerBrowser:    workersPerBrowser,
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return int(math.Ceil(float64(a) / float64(b)))
}

func maxInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// hostCPUs reports the number of logical CPUs available to this
// process.
func hostCPUs() int {
	return runtime.NumCPU()
}

// hostFreeGB reports free host memory in gigabytes, read from
// /proc/meminfo's MemAvailable line on Linux. Any failure to read or
// parse it — the file doesn't exist, the line is missing, the host
// isn't Linux — falls back to a fixed conservative estimate rather
// than failing the crawl outright.
func hostFreeGB() float64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return fallbackFreeGB
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return fallbackFreeGB
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fallbackFreeGB
		}
		return kb / (1024 * 1024)
	}
	return fallbackFreeGB
}
