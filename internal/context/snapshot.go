package context

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// systemStatCollector refreshes SystemSnapshot and per-process CPU/RSS
// samples from /proc, the way the teacher's internal/collector package
// reads /proc/stat and /proc/[pid]/stat directly rather than through a
// library — there is no sysinfo-equivalent crate in the dependency pack, so
// this mirrors the original's own source of truth (the kernel's procfs)
// instead of the Rust project's sysinfo abstraction over it.
type systemStatCollector struct {
	procRoot string

	mu          sync.Mutex
	prevCPU     cpuJiffies
	prevSampled bool

	prevProc map[int]procJiffies
}

// cpuJiffies mirrors /proc/stat's aggregate "cpu" line.
type cpuJiffies struct {
	user, nice, system, idle, iowait, irq, softirq, steal uint64
}

func (t cpuJiffies) total() uint64 {
	return t.user + t.nice + t.system + t.idle + t.iowait + t.irq + t.softirq + t.steal
}

func (t cpuJiffies) busy() uint64 {
	return t.total() - t.idle - t.iowait
}

type procJiffies struct {
	utime, stime uint64
}

func newSystemStatCollector(procRoot string) *systemStatCollector {
	return &systemStatCollector{procRoot: procRoot, prevProc: make(map[int]procJiffies)}
}

// refresh computes a SystemSnapshot using the delta against whatever was
// read on the previous call; the first call reports 0% CPU since there is
// no prior sample to diff against, matching a cold-start sysinfo refresh.
func (c *systemStatCollector) refresh() SystemSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := cpuJiffies{}
	now = c.readAggregateCPU()

	var cpuPct float64
	if c.prevSampled {
		totalDelta := float64(now.total() - c.prevCPU.total())
		if totalDelta > 0 {
			cpuPct = float64(now.busy()-c.prevCPU.busy()) / totalDelta * 100
		}
	}
	c.prevCPU = now
	c.prevSampled = true

	memTotalKB, memAvailKB := c.readMeminfo()
	var memPct float64
	if memTotalKB > 0 {
		memPct = float64(memTotalKB-memAvailKB) / float64(memTotalKB) * 100
	}

	l1, l5, l15 := c.readLoadAvg()
	rx, tx := c.readNetCounters()
	readBytes, writeBytes := c.readDiskCounters()
	cpuSome, memSome, memFull, ioSome, ioFull := c.readPSIAvg10()

	return SystemSnapshot{
		TimestampUnix:      time.Now().Unix(),
		CPUPercent:         cpuPct,
		MemPercent:         memPct,
		LoadAvg1:           l1,
		LoadAvg5:           l5,
		LoadAvg15:          l15,
		DiskReadBytes:      readBytes,
		DiskWriteBytes:     writeBytes,
		NetRxBytes:         rx,
		NetTxBytes:         tx,
		PSICPUSomeAvg10:    cpuSome,
		PSIMemorySomeAvg10: memSome,
		PSIMemoryFullAvg10: memFull,
		PSIIOSomeAvg10:     ioSome,
		PSIIOFullAvg10:     ioFull,
	}
}

func (c *systemStatCollector) readAggregateCPU() cpuJiffies {
	f, err := os.Open(filepath.Join(c.procRoot, "stat"))
	if err != nil {
		return cpuJiffies{}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 9 && fields[0] == "cpu" {
			parse := func(i int) uint64 {
				v, _ := strconv.ParseUint(fields[i], 10, 64)
				return v
			}
			return cpuJiffies{
				user: parse(1), nice: parse(2), system: parse(3), idle: parse(4),
				iowait: parse(5), irq: parse(6), softirq: parse(7), steal: parse(8),
			}
		}
	}
	return cpuJiffies{}
}

func (c *systemStatCollector) readMeminfo() (totalKB, availKB uint64) {
	f, err := os.Open(filepath.Join(c.procRoot, "meminfo"))
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), ":", 2)
		if len(parts) != 2 {
			continue
		}
		fields := strings.Fields(parts[1])
		if len(fields) == 0 {
			continue
		}
		v, _ := strconv.ParseUint(fields[0], 10, 64)
		switch strings.TrimSpace(parts[0]) {
		case "MemTotal":
			totalKB = v
		case "MemAvailable":
			availKB = v
		}
	}
	return totalKB, availKB
}

func (c *systemStatCollector) readLoadAvg() (one, five, fifteen float64) {
	data, err := os.ReadFile(filepath.Join(c.procRoot, "loadavg"))
	if err != nil {
		return 0, 0, 0
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return 0, 0, 0
	}
	one, _ = strconv.ParseFloat(fields[0], 64)
	five, _ = strconv.ParseFloat(fields[1], 64)
	fifteen, _ = strconv.ParseFloat(fields[2], 64)
	return one, five, fifteen
}

// readNetCounters sums cumulative rx/tx bytes across every interface in
// /proc/net/dev (spec §3: "cumulative … network byte counters").
func (c *systemStatCollector) readNetCounters() (rx, tx uint64) {
	f, err := os.Open(filepath.Join(c.procRoot, "net", "dev"))
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= 2 {
			continue // header lines
		}
		line := scanner.Text()
		colon := strings.Index(line, ":")
		if colon < 0 {
			continue
		}
		fields := strings.Fields(line[colon+1:])
		if len(fields) < 9 {
			continue
		}
		rxBytes, _ := strconv.ParseUint(fields[0], 10, 64)
		txBytes, _ := strconv.ParseUint(fields[8], 10, 64)
		rx += rxBytes
		tx += txBytes
	}
	return rx, tx
}

// readDiskCounters sums cumulative read/write bytes (sectors * 512) across
// every device in /proc/diskstats.
func (c *systemStatCollector) readDiskCounters() (readBytes, writeBytes uint64) {
	f, err := os.Open(filepath.Join(c.procRoot, "diskstats"))
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}
		readSectors, _ := strconv.ParseUint(fields[5], 10, 64)
		writeSectors, _ := strconv.ParseUint(fields[9], 10, 64)
		readBytes += readSectors * 512
		writeBytes += writeSectors * 512
	}
	return readBytes, writeBytes
}

func (c *systemStatCollector) readPSIAvg10() (cpuSome, memSome, memFull, ioSome, ioFull float64) {
	cpuSome, _ = c.readPSIFileBoth("cpu")
	memSome, memFull = c.readPSIFileBoth("memory")
	ioSome, ioFull = c.readPSIFileBoth("io")
	return cpuSome, memSome, memFull, ioSome, ioFull
}

func (c *systemStatCollector) readPSIFileBoth(resource string) (some, full float64) {
	f, err := os.Open(filepath.Join(c.procRoot, "pressure", resource))
	if err != nil {
		return 0, 0 // PSI unavailable (kernel < 4.20); degrade to zero
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		prefix := fields[0]
		for _, field := range fields[1:] {
			kv := strings.SplitN(field, "=", 2)
			if len(kv) != 2 || kv[0] != "avg10" {
				continue
			}
			v, _ := strconv.ParseFloat(kv[1], 64)
			if prefix == "some" {
				some = v
			} else if prefix == "full" {
				full = v
			}
		}
	}
	return some, full
}

// refreshProcesses samples per-pid CPU%/mem% for every pid currently in
// pids, diffing utime+stime against the previous call (original's
// sys.refresh_all() + proc.cpu_usage()/proc.memory()).
func (c *systemStatCollector) refreshProcesses(pids []uint32) map[uint32]procSample {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalKB, _ := c.readMeminfo()
	clockHz := 100.0
	out := make(map[uint32]procSample, len(pids))
	current := make(map[int]procJiffies, len(pids))

	for _, pid := range pids {
		p := int(pid)
		jiffies, rssKB, ok := c.readProcPID(p)
		if !ok {
			continue
		}
		current[p] = jiffies

		var cpuPct float64
		if prev, had := c.prevProc[p]; had {
			deltaTicks := float64((jiffies.utime + jiffies.stime) - (prev.utime + prev.stime))
			cpuPct = deltaTicks / clockHz * 100
		}
		var memPct float64
		if totalKB > 0 {
			memPct = float64(rssKB) / float64(totalKB) * 100
		}
		out[pid] = procSample{cpuPercent: cpuPct, memPercent: memPct}
	}
	c.prevProc = current
	return out
}

type procSample struct {
	cpuPercent float64
	memPercent float64
}

func (c *systemStatCollector) readProcPID(pid int) (jiffies procJiffies, rssKB uint64, ok bool) {
	statData, err := os.ReadFile(filepath.Join(c.procRoot, strconv.Itoa(pid), "stat"))
	if err != nil {
		return procJiffies{}, 0, false
	}
	statStr := string(statData)
	commEnd := strings.LastIndex(statStr, ")")
	if commEnd < 0 {
		return procJiffies{}, 0, false
	}
	rest := strings.Fields(statStr[commEnd+2:])
	if len(rest) < 22 {
		return procJiffies{}, 0, false
	}
	utime, _ := strconv.ParseUint(rest[11], 10, 64)
	stime, _ := strconv.ParseUint(rest[12], 10, 64)
	rssPages, _ := strconv.ParseInt(rest[21], 10, 64)

	pageSizeKB := uint64(4)
	return procJiffies{utime: utime, stime: stime}, uint64(rssPages) * pageSizeKB, true
}
