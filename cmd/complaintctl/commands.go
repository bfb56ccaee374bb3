package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/core/usecase"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/storage/localfs"
)

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func runLogin(ctx context.Context, c *cli, args []string) error {
	var username, password string
	var remember bool
	if _, err := c.parse("login", args, func(fs *flag.FlagSet) {
		fs.StringVar(&username, "u", "", "username")
		fs.StringVar(&password, "p", "", "password; read from stdin when empty")
		fs.BoolVar(&remember, "remember", true, "ask for a long lived token")
	}); err != nil {
		return err
	}
	if password == "" {
		line, err := bufio.NewReader(c.stdin).ReadString('\n')
		if err != nil && line == "" {
			return &domain.ValidationError{Field: "password", Rule: domain.RuleRequired}
		}
		password = strings.TrimRight(line, "\r\n")
	}

	session, err := c.app.Credentials.Login(ctx, username, password, remember)
	if err != nil {
		return err
	}
	c.msg("session.logged_in", map[string]string{"user": displayName(session.User)})
	return nil
}

func runLogout(ctx context.Context, c *cli, _ []string) error {
	if err := c.app.Credentials.Logout(ctx); err != nil {
		return err
	}
	c.msg("session.logged_out", nil)
	return nil
}

func runWhoami(ctx context.Context, c *cli, _ []string) error {
	user, ok := c.app.Credentials.CurrentUser(ctx)
	if !ok || !c.app.Credentials.IsAuthenticated(ctx) {
		return domain.ErrUnauthorized
	}
	c.printf("%s\t%s\t%s\n", user.Username, user.FullName, user.Role)
	return nil
}

func runSubmit(ctx context.Context, c *cli, args []string) error {
	var (
		draft        domain.ComplaintDraft
		complaintTyp string
		department   string
		incidentDate string
		images       stringList
		retries      int
	)
	if _, err := c.parse("submit", args, func(fs *flag.FlagSet) {
		fs.StringVar(&complaintTyp, "type", "", "complaint type")
		fs.StringVar(&incidentDate, "date", "", "incident date, YYYY-MM-DD")
		fs.StringVar(&draft.Description, "description", "", "what happened")
		fs.StringVar(&draft.Location, "location", "", "where it happened")
		fs.StringVar(&draft.WorkerFullName, "worker", "", "full name of the worker involved")
		fs.StringVar(&department, "department", "", "department of the worker")
		fs.StringVar(&draft.WorkerPosition, "position", "", "position of the worker")
		fs.StringVar(&draft.WorkerDescription, "worker-description", "", "physical description of the worker")
		fs.Var(&images, "image", "image to attach; repeatable")
		fs.IntVar(&retries, "retry-evidence", 0, "upload attempts to repeat when the images fail")
	}); err != nil {
		return err
	}
	draft.Type = domain.ComplaintType(complaintTyp)
	draft.Department = domain.Department(department)
	if strings.TrimSpace(incidentDate) != "" {
		date, err := domain.ParseDate(incidentDate)
		if err != nil {
			return &domain.ValidationError{Field: "incidentDate", Rule: domain.RuleRequired}
		}
		draft.IncidentDate = date
	}

	form, err := c.app.NewComplaintForm()
	if err != nil {
		return err
	}
	defer form.Staging().Close()

	if len(images) > 0 {
		files, err := localfs.OpenFiles(images)
		if err != nil {
			return err
		}
		if _, err := form.Staging().Stage(files); err != nil {
			return err
		}
	}
	form.SetDraft(draft)

	progress := func(percent int) {
		c.msg("submission.progress", map[string]string{"percent": strconv.Itoa(percent)})
	}
	result, err := c.app.SubmissionUC.Submit(ctx, form, progress)
	for attempt := 0; err != nil && attempt < retries; attempt++ {
		var subErr *domain.SubmissionError
		if !errors.As(err, &subErr) || subErr.Kind != domain.SubmissionEvidenceFailed {
			break
		}
		c.printf("%s\n", c.app.Catalog.Error(err))
		result, err = c.app.SubmissionUC.RetryEvidence(ctx, form, subErr.Complaint, progress)
	}
	if err != nil {
		return err
	}
	c.msg("submission.done", map[string]string{"code": result.TrackingCode})
	return nil
}

func runReceipts(ctx context.Context, c *cli, args []string) error {
	var limit int
	if _, err := c.parse("receipts", args, func(fs *flag.FlagSet) {
		fs.IntVar(&limit, "limit", 20, "number of receipts to show")
	}); err != nil {
		return err
	}
	receipts, err := c.app.Receipts.ListReceipts(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tTYPE\tIMAGES\tEVIDENCE\tSUBMITTED")
	for _, r := range receipts {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.TrackingCode, r.ComplaintType, r.EvidenceCount, r.Evidence, r.SubmittedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runList(ctx context.Context, c *cli, args []string) error {
	var page int
	if _, err := c.parse("list", args, func(fs *flag.FlagSet) {
		fs.IntVar(&page, "page", 1, "page number, starting at 1")
	}); err != nil {
		return err
	}
	dir := c.app.NewDirectory(nil)
	defer dir.Close()
	if err := dir.Refresh(ctx); err != nil {
		return err
	}
	if err := dir.GoToPage(ctx, page-1); err != nil {
		return err
	}
	printView(c, dir.View())
	return nil
}

func runSearch(ctx context.Context, c *cli, args []string) error {
	var (
		filters    domain.SearchFilters
		department string
		typ        string
		status     string
		term       string
		byWorker   string
		page       int
	)
	if _, err := c.parse("search", args, func(fs *flag.FlagSet) {
		fs.StringVar(&department, "department", "", "department filter")
		fs.StringVar(&typ, "type", "", "complaint type filter")
		fs.StringVar(&status, "status", "", "status filter")
		fs.StringVar(&filters.WorkerName, "worker", "", "worker name filter")
		fs.StringVar(&byWorker, "by-worker", "", "list every complaint about a worker; ignores the other filters")
		fs.StringVar(&term, "q", "", "free text search; ignores the other filters")
		fs.IntVar(&page, "page", 1, "page number, starting at 1")
	}); err != nil {
		return err
	}

	if page < 1 {
		page = 1
	}
	if strings.TrimSpace(term) != "" {
		return quickSearch(ctx, c, term)
	}
	if name := strings.TrimSpace(byWorker); name != "" {
		result, err := c.app.Complaints.SearchByWorker(ctx, name, page-1, c.app.Config.PageSize)
		if err != nil {
			return err
		}
		printComplaints(c, result.Items)
		c.printf("page %d/%d, %d complaints\n", result.PageIndex+1, max(result.TotalPages, 1), result.TotalItems)
		return nil
	}

	var err error
	for _, f := range []struct {
		field domain.FilterField
		value string
	}{
		{domain.FilterDepartment, department},
		{domain.FilterType, typ},
		{domain.FilterStatus, status},
	} {
		if filters, err = filters.With(f.field, f.value); err != nil {
			return err
		}
	}

	dir := c.app.NewDirectory(nil)
	defer dir.Close()
	if err := dir.SetFilters(ctx, filters); err != nil {
		return err
	}
	if err := dir.GoToPage(ctx, page-1); err != nil {
		return err
	}
	printView(c, dir.View())
	return nil
}

// quickSearch runs the free text term through the directory so the minimum
// length and debounce apply as they do in browse.
func quickSearch(ctx context.Context, c *cli, term string) error {
	views := make(chan usecase.DirectoryView, 1)
	dir := c.app.NewDirectory(func(view usecase.DirectoryView) {
		select {
		case views <- view:
		default:
		}
	})
	defer dir.Close()

	dir.SetSearchTerm(term)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case view := <-views:
		if view.Err != nil {
			return view.Err
		}
		printComplaints(c, view.SearchResults)
		return nil
	}
}

func runFind(ctx context.Context, c *cli, args []string) error {
	fs, err := c.parse("find", args, func(*flag.FlagSet) {})
	if err != nil {
		return err
	}
	details, err := c.app.DetailsUC.ByCode(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	printDetails(c, details)
	return nil
}

func runImages(ctx context.Context, c *cli, args []string) error {
	var (
		target string
		attach stringList
	)
	fs, err := c.parse("images", args, func(fs *flag.FlagSet) {
		fs.StringVar(&target, "download", "", "directory to download every image into")
		fs.Var(&attach, "add", "image to attach to the complaint; repeatable")
	})
	if err != nil {
		return err
	}
	details, err := c.app.DetailsUC.ByCode(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if len(attach) > 0 {
		return attachImages(ctx, c, details.Complaint.ID, attach)
	}
	if target == "" {
		for _, img := range details.Evidence {
			c.printf("%s\t%s\t%s\t%s\n", img.OriginalFilename, img.MimeType, domain.FormatSize(img.SizeBytes), c.app.Evidence.DownloadURL(img.StoredName))
		}
		return nil
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	for _, img := range details.Evidence {
		path := filepath.Join(target, filepath.Base(img.StoredName))
		n, err := downloadTo(ctx, c, img.StoredName, path)
		if err != nil {
			return err
		}
		c.printf("%s\t%s\n", path, domain.FormatSize(n))
	}
	return nil
}

// attachImages adds evidence to an existing complaint one file at a time,
// validated by the same staging rules as a submission.
func attachImages(ctx context.Context, c *cli, complaintID domain.ID, paths []string) error {
	form, err := c.app.NewComplaintForm()
	if err != nil {
		return err
	}
	defer form.Staging().Close()

	files, err := localfs.OpenFiles(paths)
	if err != nil {
		return err
	}
	if _, err := form.Staging().Stage(files); err != nil {
		return err
	}
	for _, file := range files {
		img, err := c.app.Evidence.Upload(ctx, file, complaintID)
		if err != nil {
			return err
		}
		c.printf("%s\t%s\n", img.OriginalFilename, c.app.Evidence.DownloadURL(img.StoredName))
	}
	return nil
}

func downloadTo(ctx context.Context, c *cli, storedName, path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := c.app.Evidence.Download(ctx, storedName, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return n, nil
}

func runStats(ctx context.Context, c *cli, _ []string) error {
	dir := c.app.NewDirectory(nil)
	defer dir.Close()
	stats, err := dir.LoadStats(ctx)
	if err != nil {
		return err
	}
	c.printf("total\t%d\npending\t%d\nresolved\t%d\n", stats.Total, stats.Pending, stats.Resolved)
	return nil
}

func runExport(ctx context.Context, c *cli, args []string) error {
	var (
		output     string
		department string
		typ        string
		status     string
		worker     string
	)
	if _, err := c.parse("export", args, func(fs *flag.FlagSet) {
		fs.StringVar(&output, "o", "denuncias.xlsx", "output workbook")
		fs.StringVar(&department, "department", "", "department filter")
		fs.StringVar(&typ, "type", "", "complaint type filter")
		fs.StringVar(&status, "status", "", "status filter")
		fs.StringVar(&worker, "worker", "", "worker name filter")
	}); err != nil {
		return err
	}
	filters, err := domain.SearchFilters{}.With(domain.FilterStatus, status)
	if err != nil {
		return err
	}
	filters.Department = domain.Department(strings.TrimSpace(department))
	filters.Type = domain.ComplaintType(strings.TrimSpace(typ))
	filters.WorkerName = strings.TrimSpace(worker)

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	n, err := c.app.ExportUC.Export(ctx, f, filters)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(output)
		return err
	}
	c.printf("%d\t%s\n", n, output)
	return nil
}

func displayName(u domain.User) string {
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Username
}

func printComplaints(c *cli, items []domain.Complaint) {
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tTYPE\tDATE\tSTATUS\tDEPARTMENT\tWORKER")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", item.Code, item.Type, item.IncidentDate, item.DisplayStatus(), item.Department, item.WorkerFullName)
	}
	_ = tw.Flush()
}

func printView(c *cli, view usecase.DirectoryView) {
	printComplaints(c, view.Complaints)
	pages := view.TotalPages
	if pages == 0 {
		pages = 1
	}
	c.printf("page %d/%d, %d complaints\n", view.PageIndex+1, pages, view.TotalItems)
}

func printDetails(c *cli, d *usecase.ComplaintDetails) {
	cm := d.Complaint
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "code\t%s\n", cm.Code)
	fmt.Fprintf(tw, "type\t%s\n", cm.Type)
	fmt.Fprintf(tw, "status\t%s\n", cm.DisplayStatus())
	fmt.Fprintf(tw, "incident date\t%s\n", cm.IncidentDate)
	fmt.Fprintf(tw, "location\t%s\n", cm.Location)
	fmt.Fprintf(tw, "worker\t%s\n", cm.WorkerFullName)
	fmt.Fprintf(tw, "department\t%s\n", cm.Department)
	fmt.Fprintf(tw, "position\t%s\n", cm.WorkerPosition)
	fmt.Fprintf(tw, "description\t%s\n", cm.Description)
	fmt.Fprintf(tw, "images\t%d\n", len(d.Evidence))
	_ = tw.Flush()
}
