package fsops

// FakeDeleter implements Deleter for testing
// Records all delete calls without touching the filesystem
type FakeDeleter struct {
	Calls []string
	// Fail maps a path to the error its removal should return
	Fail map[string]error
}

func (f *FakeDeleter) Remove(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)
	if err, ok := f.Fail[path]; ok {
		return err
	}
	return nil
}

func (f *FakeDeleter) RemoveAll(path string) error {
	f.Calls = append(f.Calls, "rmall:"+path)
	if err, ok := f.Fail[path]; ok {
		return err
	}
	return nil
}
