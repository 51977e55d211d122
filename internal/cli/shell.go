package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/dmitrijs2005/sharedfs/internal/common"
	"github.com/dmitrijs2005/sharedfs/internal/logging"
	"github.com/dmitrijs2005/sharedfs/internal/models"
	"github.com/google/uuid"
)

// FileAPI is the kernel surface the shell calls, one method per menu action.
type FileAPI interface {
	CreateFile(ctx context.Context, name string, content []byte) (int64, error)
	ReadFile(ctx context.Context, name string) (*models.FileContent, error)
	WriteFile(ctx context.Context, name string, content []byte) (int64, error)
	DeleteFile(ctx context.Context, name string) (int64, error)
	OpenFile(ctx context.Context, user, name string) error
	CloseFile(ctx context.Context, user, name string) error
	OpenFiles(user string) []string
	MaxOpenFiles() int
	ShareFile(ctx context.Context, owner, name, target string) error
	ListFiles(ctx context.Context) (iter.Seq[string], error)
	Status(ctx context.Context) (*models.Status, error)
}

// AuthAPI registers and authenticates accounts.
type AuthAPI interface {
	Register(ctx context.Context, name string, password []byte) (*models.User, error)
	Login(ctx context.Context, name string, password []byte) (*models.User, error)
}

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

type Shell struct {
	files  FileAPI
	auth   AuthAPI
	logger logging.Logger
	reader *bufio.Reader
	out    io.Writer

	user    *models.User
	session string
}

func NewShell(files FileAPI, auth AuthAPI, logger logging.Logger, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		files:  files,
		auth:   auth,
		logger: logger,
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run blocks until the user exits, input ends, or ctx is done.
func (s *Shell) Run(ctx context.Context) {
	fmt.Fprintln(s.out, "Welcome to the shared file store (type 'help' for commands)")
	runREPL(ctx, s, s.status, s.reader, s.out)
	if s.isLoggedIn() {
		_ = s.Logout(ctx)
	}
}

func (s *Shell) status() string {
	if s.user == nil {
		return ""
	}
	if s.user.IsAdmin() {
		return fmt.Sprintf("(%s admin)", s.user.Name)
	}
	return fmt.Sprintf("(%s)", s.user.Name)
}

func (s *Shell) isLoggedIn() bool {
	return s.user != nil
}

// fail prints err tagged with its kind and returns it.
func (s *Shell) fail(err error) error {
	fmt.Fprintf(s.out, "Error [%s]: %v\n", common.Kind(err), err)
	return err
}

// nameArg returns the first argument or prompts for a file name.
func (s *Shell) nameArg(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(s.reader, prompt, s.out)
}

func (s *Shell) Register(ctx context.Context) error {
	name, err := getSimpleText(s.reader, "Enter username", s.out)
	if err != nil {
		return err
	}

	password, err := getPassword(s.reader, s.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := s.auth.Register(ctx, name, password); err != nil {
		return s.fail(err)
	}

	fmt.Fprintf(s.out, "User '%s' registered.\n", name)
	return nil
}

func (s *Shell) Login(ctx context.Context) error {
	if s.isLoggedIn() {
		fmt.Fprintf(s.out, "Already logged in as %s. Logout first.\n", s.user.Name)
		return nil
	}

	name, err := getSimpleText(s.reader, "Enter username", s.out)
	if err != nil {
		return err
	}

	password, err := getPassword(s.reader, s.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := s.auth.Login(ctx, name, password)
	if err != nil {
		return s.fail(err)
	}

	s.user = u
	s.session = uuid.NewString()
	s.logger.Info(ctx, "session started", "session", s.session, "user", u.Name)

	fmt.Fprintf(s.out, "Login successful! Welcome, %s.\n", u.Name)
	return nil
}

// Logout ends the session. Handles the user still holds stay registered to
// the account.
func (s *Shell) Logout(ctx context.Context) error {
	if !s.isLoggedIn() {
		return nil
	}
	s.logger.Info(ctx, "session ended", "session", s.session, "user", s.user.Name)
	s.user = nil
	s.session = ""
	fmt.Fprintln(s.out, "Logged out.")
	return nil
}

func (s *Shell) Create(ctx context.Context, args []string) error {
	name, err := s.nameArg(args, "Enter file name")
	if err != nil {
		return err
	}
	content, err := getMultiline(s.reader, "Enter file content", s.out)
	if err != nil {
		return err
	}

	size, err := s.files.CreateFile(ctx, name, []byte(content))
	if err != nil {
		return s.fail(err)
	}

	fmt.Fprintf(s.out, "File '%s' created (%d bytes).\n", name, size)
	return nil
}

func (s *Shell) Read(ctx context.Context, args []string) error {
	name, err := s.nameArg(args, "Enter file name")
	if err != nil {
		return err
	}

	fc, err := s.files.ReadFile(ctx, name)
	if err != nil {
		return s.fail(err)
	}

	fmt.Fprintln(s.out, "=== FILE CONTENT ===")
	fmt.Fprintln(s.out, string(fc.Data))
	fmt.Fprintln(s.out, "====================")
	fmt.Fprintf(s.out, "File size: %d bytes\n", fc.Size)
	fmt.Fprintf(s.out, "Digest: %s\n", fc.Digest)
	return nil
}

func (s *Shell) Write(ctx context.Context, args []string) error {
	name, err := s.nameArg(args, "Enter file name")
	if err != nil {
		return err
	}
	content, err := getMultiline(s.reader, "Enter new content", s.out)
	if err != nil {
		return err
	}

	size, err := s.files.WriteFile(ctx, name, []byte(content))
	if err != nil {
		return s.fail(err)
	}

	fmt.Fprintf(s.out, "File '%s' updated (%d bytes).\n", name, size)
	return nil
}

func (s *Shell) Delete(ctx context.Context, args []string) error {
	name, err := s.nameArg(args, "Enter file name")
	if err != nil {
		return err
	}

	freed, err := s.files.DeleteFile(ctx, name)
	if err != nil {
		return s.fail(err)
	}

	fmt.Fprintf(s.out, "File '%s' deleted (%d bytes freed).\n", name, freed)
	return nil
}

func (s *Shell) Open(ctx context.Context, args []string) error {
	name, err := s.nameArg(args, "Enter file name")
	if err != nil {
		return err
	}

	if err := s.files.OpenFile(ctx, s.user.Name, name); err != nil {
		return s.fail(err)
	}

	fmt.Fprintf(s.out, "File '%s' opened.\n", name)
	return nil
}

func (s *Shell) Close(ctx context.Context, args []string) error {
	name, err := s.nameArg(args, "Enter file name")
	if err != nil {
		return err
	}

	if err := s.files.CloseFile(ctx, s.user.Name, name); err != nil {
		return s.fail(err)
	}

	fmt.Fprintf(s.out, "File '%s' closed.\n", name)
	return nil
}

func (s *Shell) Opened(ctx context.Context) error {
	names := s.files.OpenFiles(s.user.Name)
	fmt.Fprintf(s.out, "%d of %d files open.\n", len(names), s.files.MaxOpenFiles())
	for _, n := range names {
		fmt.Fprintln(s.out, "- "+n)
	}
	return nil
}

// Share takes "share <file> <user>" or prompts for what is missing.
func (s *Shell) Share(ctx context.Context, args []string) error {
	name, err := s.nameArg(args, "Enter file name")
	if err != nil {
		return err
	}
	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}
	target, err := s.nameArg(rest, "Enter username to share with")
	if err != nil {
		return err
	}

	if err := s.files.ShareFile(ctx, s.user.Name, name, target); err != nil {
		return s.fail(err)
	}

	fmt.Fprintf(s.out, "File '%s' shared with %s.\n", name, target)
	return nil
}

func (s *Shell) List(ctx context.Context) error {
	names, err := s.files.ListFiles(ctx)
	if err != nil {
		return s.fail(err)
	}

	fmt.Fprintln(s.out, "=== FILES IN SYSTEM ===")
	n := 0
	for name := range names {
		fmt.Fprintln(s.out, "- "+name)
		n++
	}
	if n == 0 {
		fmt.Fprintln(s.out, "No files available.")
	}
	return nil
}

func (s *Shell) Status(ctx context.Context) error {
	st, err := s.files.Status(ctx)
	if err != nil {
		return s.fail(err)
	}

	fmt.Fprintln(s.out, "=== SYSTEM STATUS ===")
	fmt.Fprintf(s.out, "Total space: %d bytes\n", st.CapacityBytes)
	fmt.Fprintf(s.out, "Used space: %d bytes\n", st.UsedBytes)
	fmt.Fprintf(s.out, "Available space: %d bytes\n", st.AvailableBytes)
	fmt.Fprintf(s.out, "Number of users: %d\n", st.UserCount)
	fmt.Fprintf(s.out, "Number of files: %d\n", st.FileCount)
	return nil
}
