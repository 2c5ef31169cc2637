package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"inboxwars.io/internal/game/catalogs"
	"inboxwars.io/internal/game/engine"
	persistlog "inboxwars.io/internal/persistence/log"
	"inboxwars.io/internal/persistence/snapshot"
)

func main() {
	var (
		roundsDir = flag.String("rounds", "", "dir containing rounds-*.jsonl.zst")
		snapPath  = flag.String("snapshot", "", "path to .snap.zst (optional; verifies final scores)")
		configDir = flag.String("configs", "./configs", "config directory")
		fromRound = flag.Int("from_round", 0, "start verifying from round (inclusive, optional)")
		toRound   = flag.Int("to_round", 0, "stop at round (inclusive, optional)")
	)
	flag.Parse()

	if *roundsDir == "" && *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -rounds or -snapshot")
		os.Exit(2)
	}

	if *roundsDir != "" {
		files, err := listRoundFiles(*roundsDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list rounds:", err)
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Fprintln(os.Stderr, "no round files found in", *roundsDir)
			os.Exit(1)
		}
		var checked int
		for _, path := range files {
			if err := verifyFile(path, *fromRound, *toRound, &checked); err != nil {
				fmt.Fprintln(os.Stderr, "verify:", err)
				os.Exit(1)
			}
		}
		fmt.Printf("rounds ok: checked=%d entries\n", checked)
	}

	if *snapPath == "" {
		return
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	st := snap.State
	fmt.Printf("snapshot v%d room=%s round=%d phase=%s teams=%d history=%d investigations=%d\n",
		snap.Header.Version, snap.Header.RoomID, snap.Header.Round, st.Phase,
		len(st.Teams), len(st.History), len(st.Investigations))

	if st.Final == nil {
		return
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}

	// Recompute the final scores from the session and compare with the
	// snapshot's record.
	recomputed := engine.ComputeFinal(st, engine.Investments(st, cats))
	got, err := json.Marshal(recomputed)
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal recomputed:", err)
		os.Exit(1)
	}
	want, err := json.Marshal(st.Final)
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal recorded:", err)
		os.Exit(1)
	}
	if string(got) != string(want) {
		fmt.Fprintln(os.Stderr, "final score mismatch")
		fmt.Fprintln(os.Stderr, " recorded:  ", string(want))
		fmt.Fprintln(os.Stderr, " recomputed:", string(got))
		os.Exit(1)
	}
	fmt.Println("final scores ok")
}

func listRoundFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "rounds-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func verifyFile(path string, fromRound, toRound int, checked *int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		var entry persistlog.RoundLogEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if entry.Round < fromRound {
			continue
		}
		if toRound != 0 && entry.Round > toRound {
			return nil
		}
		got := engine.ResolutionDigest(entry.Resolution)
		if got != entry.Digest {
			return fmt.Errorf("digest mismatch room=%s round=%d: got=%s want=%s", entry.RoomID, entry.Round, got, entry.Digest)
		}
		*checked++
	}
	return sc.Err()
}
