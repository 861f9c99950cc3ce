package vm

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// machineState is the JSON-serializable snapshot of VM control state.
type machineState struct {
	PC       int                 `json:"pc"`
	Regs     [NumRegisters]int64 `json:"regs"`
	Stack    []int64             `json:"stack"`
	Halted   bool                `json:"halted"`
	Steps    int                 `json:"steps"`
	MaxSteps int                 `json:"max_steps"`
}

// HibernateToBytes serialises the machine into an in-memory ZIP archive
// holding state.json, program.bin and memory.bin.
func (v *VM) HibernateToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := machineState{
		PC:       v.PC,
		Regs:     v.Regs,
		Stack:    v.Stack,
		Halted:   v.Halted,
		Steps:    v.Steps,
		MaxSteps: v.MaxSteps,
	}
	stateJSON, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	if err := writeZipEntry(zw, "state.json", stateJSON); err != nil {
		return nil, err
	}

	code, err := v.Program.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "program.bin", code); err != nil {
		return nil, err
	}

	// Trailing zero words are not stored.
	used := len(v.Memory)
	for used > 0 && v.Memory[used-1] == 0 {
		used--
	}
	if err := writeZipEntry(zw, "memory.bin", int64SliceToLE(v.Memory[:used])); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreFromBytes replaces the machine state with a HibernateToBytes archive.
func (v *VM) RestoreFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	stateJSON, err := readZipEntry(fileMap, "state.json")
	if err != nil {
		return err
	}
	var state machineState
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return fmt.Errorf("unmarshal state: %w", err)
	}

	code, err := readZipEntry(fileMap, "program.bin")
	if err != nil {
		return err
	}
	prog := new(Program)
	if err := prog.UnmarshalBinary(code); err != nil {
		return err
	}

	mem := make([]int64, MemoryWords)
	if raw, err := readZipEntry(fileMap, "memory.bin"); err == nil {
		leToInt64Slice(raw, mem)
	}

	v.Program = prog
	v.PC = state.PC
	v.Regs = state.Regs
	v.Stack = append([]int64(nil), state.Stack...)
	v.Halted = state.Halted
	v.Steps = state.Steps
	v.MaxSteps = state.MaxSteps
	v.Memory = mem
	return nil
}

// HibernateToFile writes the hibernation archive to path.
func (v *VM) HibernateToFile(path string) error {
	data, err := v.HibernateToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a hibernation archive from path.
func (v *VM) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return v.RestoreFromBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func int64SliceToLE(src []int64) []byte {
	out := make([]byte, len(src)*8)
	for i, v := range src {
		binary.LittleEndian.PutUint64(out[i*8:], uint64(v))
	}
	return out
}

func leToInt64Slice(src []byte, dst []int64) {
	for i := range dst {
		if i*8+7 < len(src) {
			dst[i] = int64(binary.LittleEndian.Uint64(src[i*8:]))
		}
	}
}
